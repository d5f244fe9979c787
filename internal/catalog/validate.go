package catalog

import "strings"

const (
	msgName        = "Product name is required and must be a non-empty string."
	msgPrice       = "Product price must be a positive number."
	msgCategory    = "Product category is required and must be a non-empty string."
	msgDescription = "Product description must be a string if provided."
	msgInStock     = "Product inStock must be a boolean if provided."
	msgSearchTerm  = "Search query (q) parameter is required."
	msgBody        = "Request body must be a single JSON object."
)

// Validate checks a decoded JSON object against the creation rules in order
// and returns the first failure. Absent and null optional fields take their
// defaults.
func Validate(raw map[string]any) (NewProduct, error) {
	name, ok := raw["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return NewProduct{}, invalid("name", msgName)
	}

	price, ok := raw["price"].(float64)
	if !ok || price <= 0 {
		return NewProduct{}, invalid("price", msgPrice)
	}

	category, ok := raw["category"].(string)
	if !ok || strings.TrimSpace(category) == "" {
		return NewProduct{}, invalid("category", msgCategory)
	}

	np := NewProduct{
		Name:     strings.TrimSpace(name),
		Price:    price,
		Category: strings.TrimSpace(category),
		InStock:  true,
	}

	if v, present := raw["description"]; present && v != nil {
		desc, ok := v.(string)
		if !ok {
			return NewProduct{}, invalid("description", msgDescription)
		}
		np.Description = desc
	}

	if v, present := raw["inStock"]; present && v != nil {
		inStock, ok := v.(bool)
		if !ok {
			return NewProduct{}, invalid("inStock", msgInStock)
		}
		np.InStock = inStock
	}

	return np, nil
}
