package llm

import (
	"fmt"
	"strings"

	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// systemPrompt instructs the model to answer with one strict JSON object.
// The field list is the contract parseClassification decodes.
const systemPrompt = `You are a finance extraction assistant. Given a transcription of a voice note, extract structured fields and respond with ONLY valid JSON (no code fences, no text). Fields: {
  "type": "income" or "expense",
  "category": one string chosen ONLY from the provided categories list,
  "currency": a 3-letter ISO currency code, only USD, EUR, RSD, RUB work, convert if needed,
  "amount": a number (use dot for decimals),
  "date": ISO date (YYYY-MM-DD). If no date is explicitly mentioned, set to today's date. If a relative date (e.g., 'yesterday', 'three days ago') is mentioned in ANY language, resolve it relative to today and output the concrete ISO date.,
  "month": month name from the provided month names list,
  "comment": free-text short description of the transaction,
  "source_text": the original transcription
}.
If you are unsure about category, select the closest option from the list. If currency not specified but amount is present, infer from context if possible, else use the default currency. Always ensure valid JSON and include all fields.`

// buildUserPrompt renders the per-event context: the reference instant,
// the group's registered categories, and the transcript itself.
func buildUserPrompt(req service.ClassifyRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The current date is %s.\n\n", req.Reference.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Income categories: [%s]\n", strings.Join(req.IncomeCategories, ", "))
	fmt.Fprintf(&b, "Expense categories: [%s]\n\n", strings.Join(req.ExpenseCategories, ", "))
	fmt.Fprintf(&b, "Month names list: [%s]\n\n", strings.Join(req.MonthNames, ", "))
	if req.DefaultCurrency != "" {
		fmt.Fprintf(&b, "Default currency: %s\n\n", req.DefaultCurrency)
	}
	fmt.Fprintf(&b, "Transcription: %s\n\n", req.Text)
	b.WriteString("Respond with ONLY JSON.")

	return b.String()
}
