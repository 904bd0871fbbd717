package analyzer

import (
	"testing"

	"github.com/dgallion1/cookgest/internal/recipe"
)

func TestMerge_SaltScenario(t *testing.T) {
	quantified := recipe.NewIngredients()
	quantified.Put(recipe.Ingredient{
		Name:     "盐",
		Quantity: recipe.StrPtr("5"),
		Unit:     recipe.StrPtr("g"),
		Original: "盐 5 g",
	})
	unquantified := recipe.NewIngredients()
	unquantified.Put(recipe.Ingredient{
		Name:        "盐",
		IsOptional:  true,
		Annotations: []string{"少许"},
		Original:    "盐（少许）",
	})

	merged := Merge(quantified, unquantified)
	salt, ok := merged.Get("盐")
	if !ok {
		t.Fatal("expected 盐 in merged registry")
	}
	if salt.Quantity == nil || *salt.Quantity != "5" || *salt.Unit != "g" {
		t.Errorf("expected quantity and unit kept, got %+v", salt)
	}
	if !salt.IsOptional {
		t.Error("expected materials optionality to win")
	}
	if len(salt.Annotations) != 1 || salt.Annotations[0] != "少许" {
		t.Errorf("expected tips [少许], got %v", salt.Annotations)
	}
	if salt.Original != "盐 5 g" {
		t.Errorf("expected quantities original kept, got %q", salt.Original)
	}

	orig, _ := quantified.Get("盐")
	if orig.IsOptional || len(orig.Annotations) != 0 {
		t.Errorf("expected input registry unchanged, got %+v", orig)
	}
}

func TestMerge_AnnotationUnion(t *testing.T) {
	quantified := recipe.NewIngredients()
	quantified.Put(recipe.Ingredient{Name: "姜", Annotations: []string{"切丝", "可选"}, IsOptional: true})
	unquantified := recipe.NewIngredients()
	unquantified.Put(recipe.Ingredient{Name: "姜", Annotations: []string{"切丝", "去皮"}})

	ginger, _ := Merge(quantified, unquantified).Get("姜")
	want := []string{"切丝", "可选", "去皮"}
	if len(ginger.Annotations) != len(want) {
		t.Fatalf("expected %v, got %v", want, ginger.Annotations)
	}
	for i := range want {
		if ginger.Annotations[i] != want[i] {
			t.Errorf("tip[%d]: expected %q, got %q", i, want[i], ginger.Annotations[i])
		}
	}
	if ginger.IsOptional {
		t.Error("expected materials optionality (false) to overwrite")
	}
}

func TestMerge_NewNamesAppended(t *testing.T) {
	quantified := recipe.NewIngredients()
	quantified.Put(recipe.Ingredient{Name: "豆腐", Quantity: recipe.StrPtr("200")})
	unquantified := recipe.NewIngredients()
	unquantified.Put(recipe.Ingredient{Name: "炖锅", Original: "炖锅"})
	unquantified.Put(recipe.Ingredient{Name: "豆腐"})

	merged := Merge(quantified, unquantified)
	names := merged.Names()
	if len(names) != 2 || names[0] != "豆腐" || names[1] != "炖锅" {
		t.Fatalf("expected [豆腐 炖锅], got %v", names)
	}
	pot, _ := merged.Get("炖锅")
	if pot.Quantity != nil || pot.Unit != nil || pot.Original != "炖锅" {
		t.Errorf("unexpected tool entry %+v", pot)
	}
	if pot.Annotations == nil {
		t.Error("expected non-nil tips")
	}
}
