package workspace

import (
	"fmt"

	"github.com/sieng/factor-engine/internal/reports"
)

func titleProp(text string) map[string]any {
	return map[string]any{"title": []any{map[string]any{"text": map[string]any{"content": text}}}}
}

func richTextProp(text string) map[string]any {
	return map[string]any{"rich_text": []any{map[string]any{"text": map[string]any{"content": text}}}}
}

func numberProp(value float64) map[string]any {
	return map[string]any{"number": value}
}

func dateProp(isoDate string) map[string]any {
	return map[string]any{"date": map[string]any{"start": isoDate}}
}

func selectProp(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []any{map[string]any{"type": "text", "text": map[string]any{"content": text}}},
		},
	}
}

// summaryBlocks renders a run summary as paragraph blocks.
func summaryBlocks(summary *reports.Summary) []any {
	blocks := []any{
		paragraphBlock(fmt.Sprintf("As of %s, stage %s", summary.AsOfDate, summary.Stage)),
	}
	if summary.SurvivorshipFlag {
		blocks = append(blocks, paragraphBlock("Survivorship fallback was used; results may carry look-ahead bias."))
	}
	for _, position := range summary.Positions {
		blocks = append(blocks, paragraphBlock(fmt.Sprintf("%s: %.2f%%", position.Ticker, position.Weight*100)))
	}
	if summary.Metrics != nil {
		blocks = append(blocks, paragraphBlock(fmt.Sprintf(
			"Backtest: final capital %.4f, CAGR %.2f%%, vol %.2f%%, max drawdown %.2f%%",
			summary.Metrics.FinalCapital,
			summary.Metrics.CAGR*100,
			summary.Metrics.Volatility*100,
			summary.Metrics.MaxDrawdown*100)))
	}
	return blocks
}

// extractText flattens a property value into a string, following the
// property's declared type.
func extractText(prop map[string]any) string {
	if prop == nil {
		return ""
	}
	switch prop["type"] {
	case "title":
		return joinPlainText(prop["title"])
	case "rich_text":
		return joinPlainText(prop["rich_text"])
	case "select":
		if option, ok := prop["select"].(map[string]any); ok {
			if name, ok := option["name"].(string); ok {
				return name
			}
		}
	case "number":
		if number, ok := prop["number"].(float64); ok {
			return trimFloat(number)
		}
	case "people":
		if people, ok := prop["people"].([]any); ok && len(people) > 0 {
			if person, ok := people[0].(map[string]any); ok {
				if name, ok := person["name"].(string); ok {
					return name
				}
			}
		}
	case "date":
		if date, ok := prop["date"].(map[string]any); ok {
			if start, ok := date["start"].(string); ok {
				return start
			}
		}
	}
	return ""
}

func extractBool(prop map[string]any) bool {
	if prop == nil {
		return false
	}
	if prop["type"] == "checkbox" {
		checked, _ := prop["checkbox"].(bool)
		return checked
	}
	return false
}

func joinPlainText(value any) string {
	chunks, ok := value.([]any)
	if !ok {
		return ""
	}
	text := ""
	for _, chunk := range chunks {
		if m, ok := chunk.(map[string]any); ok {
			if plain, ok := m["plain_text"].(string); ok {
				text += plain
			}
		}
	}
	return text
}

func trimFloat(value float64) string {
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%g", value)
}
