package forms

// Meal is a menu choice. The zero value means no choice was made.
type Meal int

const (
	MealNone Meal = iota
	MealMeat
	MealFish
	MealVegetarian
	MealVegan

	mealCount
)

// Both tables are sized by mealCount, so an index outside the enum does not
// compile. TestMealTablesComplete catches a missing entry.
var mealCodes = [mealCount]string{
	MealNone:       "",
	MealMeat:       "meat",
	MealFish:       "fish",
	MealVegetarian: "vegetarian",
	MealVegan:      "vegan",
}

var mealLabels = [mealCount]string{
	MealNone:       "",
	MealMeat:       "Fleisch",
	MealFish:       "Fisch",
	MealVegetarian: "Vegetarisch",
	MealVegan:      "Vegan",
}

// Meals lists every selectable meal in menu order.
func Meals() []Meal {
	meals := make([]Meal, 0, mealCount-1)
	for m := MealNone + 1; m < mealCount; m++ {
		meals = append(meals, m)
	}
	return meals
}

// ParseMeal maps a wire value onto the enum. Unknown values yield MealNone.
func ParseMeal(s string) (Meal, bool) {
	for m := MealNone + 1; m < mealCount; m++ {
		if mealCodes[m] == s {
			return m, true
		}
	}
	return MealNone, false
}

func (m Meal) Valid() bool {
	return m > MealNone && m < mealCount
}

// String returns the wire value.
func (m Meal) String() string {
	if !m.Valid() {
		return ""
	}
	return mealCodes[m]
}

// Label returns the display name shown to the couple.
func (m Meal) Label() string {
	if !m.Valid() {
		return ""
	}
	return mealLabels[m]
}
