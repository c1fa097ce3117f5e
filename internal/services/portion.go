package services

import (
	"math"

	"github.com/saolinek/kaloricka-kalkulacka/internal/models"
)

// RecipeTotals derives a recipe's aggregate weight and calories from its
// ingredient list. No rounding happens here; display rounding is the View's
// concern, and keeping full precision stops repeated partial portions from
// compounding error.
func RecipeTotals(ingredients []models.Ingredient) (totalGrams, totalKcal float64) {
	for _, ingredient := range ingredients {
		totalGrams += ingredient.Grams
		totalKcal += ingredient.KcalPer100g * ingredient.Grams / 100
	}
	return totalGrams, totalKcal
}

// PortionCalories scales a recipe's calories to a partially consumed serving
// of gramsEaten. A recipe whose total weight is zero has no defined per-gram
// ratio and cannot be portioned.
func PortionCalories(recipe models.Recipe, gramsEaten float64) (float64, error) {
	if math.IsNaN(gramsEaten) || math.IsInf(gramsEaten, 0) || gramsEaten <= 0 {
		return 0, ErrInvalidInput
	}
	if recipe.Incompatible {
		return 0, ErrNotPortionable
	}
	totalGrams, totalKcal := RecipeTotals(recipe.Ingredients)
	if totalGrams <= 0 {
		return 0, ErrNotPortionable
	}
	return totalKcal * gramsEaten / totalGrams, nil
}
