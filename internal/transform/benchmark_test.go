package transform

import (
	"fmt"
	"testing"

	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/validator"
)

// generateNestedTree creates a tree nested depth levels deep with width
// children per group
func generateNestedTree(depth, width int) models.FieldTree {
	tree := make(models.FieldTree, 0, width)
	for i := 0; i < width; i++ {
		name := fmt.Sprintf("nested_%d_%d", depth, i)
		if depth <= 0 {
			tree = append(tree, models.FieldNode{Name: name, Kind: models.String, DefaultValue: models.StringValue("data")})
			continue
		}
		tree = append(tree, models.FieldNode{Name: name, Kind: models.Nested, Children: generateNestedTree(depth-1, width)})
	}
	return tree
}

// generateWideTree creates a flat tree mixing every kind of field
func generateWideTree(fieldCount int) models.FieldTree {
	tree := make(models.FieldTree, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		switch i % 3 {
		case 0:
			tree = append(tree, models.FieldNode{
				Name:         fmt.Sprintf("string_field_%d", i),
				Kind:         models.String,
				DefaultValue: models.StringValue(fmt.Sprintf("value_%d", i)),
			})
		case 1:
			tree = append(tree, models.FieldNode{
				Name:         fmt.Sprintf("number_field_%d", i),
				Kind:         models.Number,
				DefaultValue: models.NumberValue(float64(i) + 0.5),
			})
		case 2:
			tree = append(tree, models.FieldNode{
				Name: fmt.Sprintf("object_field_%d", i),
				Kind: models.Nested,
				Children: models.FieldTree{
					{Name: "id", Kind: models.Number, DefaultValue: models.NumberValue(float64(i))},
					{Name: "name", Kind: models.String, DefaultValue: models.StringValue(fmt.Sprintf("Object %d", i))},
				},
			})
		}
	}
	return tree
}

// BenchmarkDeepNesting measures the live preview on deeply nested trees
func BenchmarkDeepNesting(b *testing.B) {
	depths := []struct {
		name  string
		depth int
		width int
	}{
		{"Depth3Width3", 3, 3},   // Moderate nesting
		{"Depth5Width2", 5, 2},   // Deep nesting
		{"Depth2Width10", 2, 10}, // Wide but shallow
	}

	for _, depth := range depths {
		b.Run(depth.name, func(b *testing.B) {
			tree := generateNestedTree(depth.depth, depth.width)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ToJSONValue(tree)
			}
		})
	}
}

// BenchmarkWideStructures measures the preview and the validator on many fields
func BenchmarkWideStructures(b *testing.B) {
	for _, count := range []int{10, 100, 1000} {
		tree := generateWideTree(count)

		b.Run(fmt.Sprintf("Transform%d", count), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = ToJSONValue(tree)
			}
		})
		b.Run(fmt.Sprintf("Validate%d", count), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = validator.Validate(tree)
			}
		})
	}
}
