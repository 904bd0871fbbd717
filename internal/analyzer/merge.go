package analyzer

import "github.com/dgallion1/cookgest/internal/recipe"

// Merge folds the materials registry into the quantities registry and returns
// the combined result. Inputs are not modified.
//
// For a name present in both, the materials entry decides IsOptional and its
// notes are appended when not already present. Names only in materials are
// added without quantity or unit.
func Merge(quantified, unquantified *recipe.Ingredients) *recipe.Ingredients {
	out := quantified.Clone()
	for name, ing := range unquantified.All() {
		existing, ok := out.Get(name)
		if !ok {
			out.Put(recipe.Ingredient{
				Name:        name,
				IsOptional:  ing.IsOptional,
				Annotations: append([]string{}, ing.Annotations...),
				Original:    ing.Original,
			})
			continue
		}
		existing.IsOptional = ing.IsOptional
		for _, tip := range ing.Annotations {
			if !existing.HasAnnotation(tip) {
				existing.Annotations = append(existing.Annotations, tip)
			}
		}
	}
	return out
}
