package service

import (
	"context"
	"fmt"
	"strings"
)

const (
	menuItemsSystemPrompt = `Extract all distinct menu items from the menu text.
Include all variations and item names mentioned.
Return ONLY a JSON array of item names.
Example: ["Pizza", "Burger", "Salad", "Sambar Fish", "Fish Fry"]`

	menuItemsUserPrompt = "Menu Text:\n%s\n\nExtract ALL menu items. Be comprehensive and include all food items mentioned."

	requestedItemsSystemPrompt = `From the customer request, extract ALL the ordered items mentioned by the customer.
Be thorough and extract every item mentioned, including typos or variations.
Return ONLY a JSON array of item names as mentioned by the customer.
Example: ["Pizza", "Coke", "sambar fished"]`

	requestedItemsUserPrompt = "Customer Request:\n%s\n\nExtract ALL items the customer mentioned. Do not miss any items even if they have typos."
)

// ItemExtractor asks the model for item lists and parses them leniently.
type ItemExtractor struct {
	completer Completer
}

func NewItemExtractor(completer Completer) *ItemExtractor {
	return &ItemExtractor{completer: completer}
}

func (e *ItemExtractor) ExtractMenuItems(ctx context.Context, menuText string) ([]string, error) {
	reply, err := e.completer.Complete(ctx, menuItemsSystemPrompt, fmt.Sprintf(menuItemsUserPrompt, menuText))
	if err != nil {
		return nil, fmt.Errorf("extract menu items: %w", err)
	}
	return ParseItemList(reply), nil
}

func (e *ItemExtractor) ExtractRequestedItems(ctx context.Context, query string) ([]string, error) {
	reply, err := e.completer.Complete(ctx, requestedItemsSystemPrompt, fmt.Sprintf(requestedItemsUserPrompt, query))
	if err != nil {
		return nil, fmt.Errorf("extract requested items: %w", err)
	}
	return ParseItemList(reply), nil
}

// ParseItemList pulls quoted strings out of the first [...] span of raw.
// It never fails: anything unparseable yields an empty list. Items are
// trimmed and deduplicated case-insensitively, first spelling wins.
func ParseItemList(raw string) []string {
	items := []string{}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return items
	}

	seen := make(map[string]struct{})
	parts := strings.Split(raw[start+1:end], `"`)
	for i := 1; i < len(parts); i += 2 {
		item := strings.TrimSpace(parts[i])
		if item == "" {
			continue
		}
		key := normalizeItem(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}
	return items
}
