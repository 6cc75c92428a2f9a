package config

import "github.com/lwitkowski/aero-offers/internal/models"

// Page represents an offer list page
type Page struct {
	Path        string          `json:"path"`
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    models.Category `json:"category,omitempty"`
}

// Pages lists the offer list pages served by the view layer
var Pages = []Page{
	{
		Path:        "/",
		Name:        "All Offers",
		Title:       "Aircraft Offers Overview",
		Description: "Aircraft Offers from various marketplaces. Ranging from Gliders like ASK21 to Cessna and much more (Gliders, TMG, Ultralight, Airplanes)",
	},
	{
		Path:        "/gliders",
		Name:        "Glider Offers",
		Title:       "Aircraft Offers - Glider Offers",
		Description: "Glider Offers from various marketplaces with prices in EUR.",
		Category:    models.CategoryGlider,
	},
	{
		Path:        "/tmg",
		Name:        "Touring Motorglider Offers",
		Title:       "Aircraft Offers - Touring Motor Glider Offers",
		Description: "Touring Motor Glider (like Super Dimona, Stemme) offers from various marketplaces with prices in EUR.",
		Category:    models.CategoryTMG,
	},
	{
		Path:        "/ultralight",
		Name:        "Ultralight Offers",
		Title:       "Aircraft Offers - Ultralights",
		Description: "Ultralight (like C42) offers from various marketplaces with prices in EUR.",
		Category:    models.CategoryUltralight,
	},
	{
		Path:        "/airplane",
		Name:        "Airplane Offers",
		Title:       "Aircraft Offers - Airplanes",
		Description: "Small Airplane (like Cessna) offers from various marketplaces with prices in EUR.",
		Category:    models.CategoryAirplane,
	},
}

// GetPageByCategory returns the list page of a category
func GetPageByCategory(category models.Category) *Page {
	for _, page := range Pages {
		if page.Category == category {
			return &page
		}
	}
	return nil
}

// ModelPageTitle is the title of a model information page.
func ModelPageTitle(manufacturer, model string) string {
	return "Model " + manufacturer + " " + model
}
