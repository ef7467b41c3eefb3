package assistant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PromptRecentLimit is how many recent transactions the prompt lists.
const PromptRecentLimit = 5

const promptIntro = `You are a helpful financial assistant for an expense tracking app. You help users understand their spending habits, provide budgeting advice, and answer questions about their finances.

Here is the user's current financial data:`

const promptGuidelines = `Guidelines:
- Be friendly, concise, and helpful
- Provide specific insights based on their actual data
- Give actionable advice when asked
- Use dollar amounts from their data
- If they ask about something not in their data, let them know
- Format responses with markdown for better readability
- Keep responses focused and not too long`

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// ComposeSystemPrompt renders c into the fixed system prompt template.
// Titles and categories are interpolated verbatim.
func ComposeSystemPrompt(c ExpenseContext) string {
	var b strings.Builder

	b.WriteString(promptIntro)
	b.WriteString("\n\n**Overall Summary:**\n")
	fmt.Fprintf(&b, "- Total All-Time Expenses: %s\n", money(c.TotalExpenses))
	fmt.Fprintf(&b, "- This Month's Spending: %s\n", money(c.ThisMonthTotal))
	fmt.Fprintf(&b, "- Last Month's Spending: %s\n", money(c.LastMonthTotal))
	fmt.Fprintf(&b, "- Month-over-Month Change: %s%%\n", c.MonthOverMonthChange().StringFixed(1))

	b.WriteString("\n**Spending by Category (This Month):**\n")
	breakdown := c.Breakdown()
	if len(breakdown) == 0 {
		b.WriteString("  No expenses this month\n")
	}
	for _, ca := range breakdown {
		fmt.Fprintf(&b, "  - %s: %s\n", ca.Category, money(ca.Amount))
	}

	b.WriteString("\n**Recent Transactions:**\n")
	recent := c.RecentTransactions[:min(len(c.RecentTransactions), PromptRecentLimit)]
	if len(recent) == 0 {
		b.WriteString("  No recent transactions\n")
	}
	for _, t := range recent {
		fmt.Fprintf(&b, "  - %s: %s (%s, %s)\n", t.Title, money(t.Amount), t.Category, t.Date)
	}

	b.WriteString("\n**Budget Status (This Month):**\n")
	if len(c.Budgets) == 0 {
		b.WriteString("  No budgets set\n")
	}
	for _, bs := range c.Budgets {
		fmt.Fprintf(&b, "  - %s: %s / %s (%s)\n", bs.Category, money(bs.Spent), money(bs.Amount), bs.Status())
	}

	b.WriteString("\n")
	b.WriteString(promptGuidelines)
	return b.String()
}
