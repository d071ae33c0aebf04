package domain

import "time"

// FoodItem is a single dish on a canteen menu.
type FoodItem struct {
	Name      string
	Allergens []string
}

// Meal groups the courses of one sitting.
type Meal struct {
	Entry   []FoodItem
	Main    []FoodItem
	Side    []FoodItem
	Dessert []FoodItem
}

// Menu is the canteen menu for one day. Either sitting may be nil when the
// vendor publishes nothing for it.
type Menu struct {
	Date   time.Time
	Lunch  *Meal
	Dinner *Meal
}
