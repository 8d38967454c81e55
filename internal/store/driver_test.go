package store

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// TestBuildTransactWriteItemUpdateDoesNotCollideWithCondition guards
// against building the update expression and the condition expression
// from two separate expression.NewBuilder() calls: each would start its
// own placeholder aliasing at #0/:0, and merging their Names()/Values()
// maps by key would let the condition's placeholders silently overwrite
// the update's, corrupting which attribute/value the UpdateExpression
// string actually resolves to.
func TestBuildTransactWriteItemUpdateDoesNotCollideWithCondition(t *testing.T) {
	d := &dynamoDriver{tableName: "test-table"}

	update := expression.Set(expression.Name("value"), expression.Value("new-value"))
	cond := expression.Name("status").Equal(expression.Value("active"))

	action := TransactAction{
		Update: &UpdateSpec{
			Key:       Key{PartitionKey: "kv:a", SortKey: "kv:a"},
			Update:    update,
			Condition: &cond,
		},
	}

	item, _, err := d.buildTransactWriteItem(action)
	if err != nil {
		t.Fatalf("buildTransactWriteItem returned error: %v", err)
	}
	if item.Update == nil {
		t.Fatalf("expected a TransactWriteItem.Update, got nil")
	}

	updateNamePlaceholder := findNamePlaceholder(item.Update.ExpressionAttributeNames, "value")
	if updateNamePlaceholder == "" {
		t.Fatalf("no name placeholder in %v resolves to %q", item.Update.ExpressionAttributeNames, "value")
	}
	valuePlaceholder := findUpdateValuePlaceholder(*item.Update.UpdateExpression, updateNamePlaceholder)
	if valuePlaceholder == "" {
		t.Fatalf("could not find the value placeholder SET assigns to %s in %q", updateNamePlaceholder, *item.Update.UpdateExpression)
	}

	av, ok := item.Update.ExpressionAttributeValues[valuePlaceholder]
	if !ok {
		t.Fatalf("ExpressionAttributeValues has no entry for %s (update and condition placeholders collided)", valuePlaceholder)
	}
	var got string
	if err := attributevalue.Unmarshal(av, &got); err != nil {
		t.Fatalf("failed to unmarshal %s: %v", valuePlaceholder, err)
	}
	if got != "new-value" {
		t.Fatalf("update's own value placeholder resolved to %q, want %q (condition's value overwrote it)", got, "new-value")
	}

	statusNamePlaceholder := findNamePlaceholder(item.Update.ExpressionAttributeNames, "status")
	if statusNamePlaceholder == "" {
		t.Fatalf("no name placeholder in %v resolves to %q", item.Update.ExpressionAttributeNames, "status")
	}
	if item.Update.ConditionExpression == nil {
		t.Fatalf("expected a ConditionExpression to have been set")
	}
}

func findNamePlaceholder(names map[string]string, attr string) string {
	for placeholder, name := range names {
		if name == attr {
			return placeholder
		}
	}
	return ""
}

// findUpdateValuePlaceholder extracts the ":N" placeholder a "SET #name
// = :value" clause assigns to #name within expr.
func findUpdateValuePlaceholder(expr, namePlaceholder string) string {
	idx := indexOf(expr, namePlaceholder+" = ")
	if idx < 0 {
		return ""
	}
	rest := expr[idx+len(namePlaceholder+" = "):]
	end := 0
	for end < len(rest) && rest[end] != ' ' && rest[end] != ',' && rest[end] != '\n' {
		end++
	}
	return rest[:end]
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
