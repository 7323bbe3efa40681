package service

import (
	"context"
	"fmt"
	"strings"
)

const intentSystemPrompt = "Classify whether the customer request is about placing a food order. " +
	"Respond with only 'true' or 'false'."

const intentUserPrompt = "Request: %s"

// IntentClassifier decides whether a query asks to place an order.
type IntentClassifier struct {
	completer Completer
}

func NewIntentClassifier(completer Completer) *IntentClassifier {
	return &IntentClassifier{completer: completer}
}

// IsOrderRequest fails only when the model call fails; unclear replies
// count as "not an order".
func (c *IntentClassifier) IsOrderRequest(ctx context.Context, query string) (bool, error) {
	reply, err := c.completer.Complete(ctx, intentSystemPrompt, fmt.Sprintf(intentUserPrompt, query))
	if err != nil {
		return false, fmt.Errorf("classify intent: %w", err)
	}
	return ParseBoolean(reply), nil
}

func ParseBoolean(response string) bool {
	lower := strings.ToLower(response)
	return strings.Contains(lower, "true") || strings.Contains(lower, "yes")
}
