package advisor

import (
	"fmt"
	"strings"

	"spendwise/internal/core"
)

const systemPrompt = `You are "SpendWise Advisor", a friendly and helpful AI financial assistant.
Your goal is to help the user understand their spending, save money, and make better financial decisions.

Current User Data (Recent Expenses):
%s

Instructions:
1. Answer the user's question based on the data above.
2. If the data is empty, give general financial advice.
3. Be concise, encouraging, and easy to understand.
4. Use emojis occasionally to be friendly.
5. If asked about "total" or specifics, calculate from the provided data.`

func buildPrompt(message string, expenses []core.Expense) string {
	if len(expenses) > recentExpenseLimit {
		expenses = expenses[:recentExpenseLimit]
	}

	var b strings.Builder
	for _, e := range expenses {
		fmt.Fprintf(&b, "%s: %s (%s)", e.Date, e.Amount.String(), e.Category)
		if e.Note != "" {
			b.WriteString(" - " + e.Note)
		}
		b.WriteByte('\n')
	}

	return fmt.Sprintf(systemPrompt, b.String()) + "\n\nUser Question: " + message
}
