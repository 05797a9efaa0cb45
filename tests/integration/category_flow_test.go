package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestCategoryFlow_CreateUpdateDelete(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "catflow@test.com", "password123")

	// Step 1: Create a category
	categoryID := app.createCategory(t, token, "Subscriptions")

	// Step 2: Duplicate names are rejected
	rec := app.request("POST", "/api/v1/categories",
		`{"name":"Subscriptions"}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate name, got %d: %s", rec.Code, rec.Body.String())
	}

	// Step 3: Update it
	rec = app.request("PUT", "/api/v1/categories/"+categoryID,
		`{"name":"Streaming","color":"#FF5722"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating category, got %d: %s", rec.Code, rec.Body.String())
	}
	category := parseJSON(t, rec)["category"].(map[string]interface{})
	if category["name"] != "Streaming" {
		t.Errorf("expected renamed category, got %v", category["name"])
	}
	if category["color"] != "#FF5722" {
		t.Errorf("expected updated color, got %v", category["color"])
	}

	// Step 4: Delete while unused succeeds
	rec = app.request("DELETE", "/api/v1/categories/"+categoryID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting category, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.request("GET", "/api/v1/categories/"+categoryID, "", token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCategoryFlow_DeleteBlockedWhileReferenced(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "catinuse@test.com", "password123")

	categoryID := app.createCategory(t, token, "Gym")
	app.createTransaction(t, token, categoryID, "expense", "35", "2024-07-01T00:00:00Z")

	rec := app.request("DELETE", "/api/v1/categories/"+categoryID, "", token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for referenced category, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "CATEGORY_IN_USE" {
		t.Errorf("expected CATEGORY_IN_USE, got %v", errObj["code"])
	}

	// Budgets block deletion too
	otherID := app.createCategory(t, token, "Books")
	rec = app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"category_id":%q,"amount":50,"period":"monthly","start_date":"2024-07-01T00:00:00Z","end_date":"2024-07-31T00:00:00Z"}`,
			otherID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating budget, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.request("DELETE", "/api/v1/categories/"+otherID, "", token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for budgeted category, got %d", rec.Code)
	}
}

func TestCategoryFlow_Stats(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "catstats@test.com", "password123")

	foodID := app.createCategory(t, token, "Eating Out")
	funID := app.createCategory(t, token, "Games")

	today := time.Now().UTC().Format(time.RFC3339)
	app.createTransaction(t, token, foodID, "expense", "75", today)
	app.createTransaction(t, token, funID, "expense", "25", today)

	rec := app.request("GET", "/api/v1/categories/stats", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stats := parseJSON(t, rec)["stats"].(map[string]interface{})
	assertAmount(t, stats["total_expenses"], "100")

	categories := stats["categories"].([]interface{})
	percentByName := map[string]float64{}
	for _, raw := range categories {
		entry := raw.(map[string]interface{})
		percentByName[entry["name"].(string)] = entry["percentage"].(float64)
	}
	if percentByName["Eating Out"] != 75 {
		t.Errorf("expected 75%% for Eating Out, got %v", percentByName["Eating Out"])
	}
	if percentByName["Games"] != 25 {
		t.Errorf("expected 25%% for Games, got %v", percentByName["Games"])
	}
}

func TestCategoryFlow_OwnershipIsolation(t *testing.T) {
	app := setupApp(t)
	tokenA, _, _ := app.registerUser(t, "cat-a@test.com", "password123")
	tokenB, _, _ := app.registerUser(t, "cat-b@test.com", "password123")

	categoryA := app.createCategory(t, tokenA, "Secret")

	rec := app.request("GET", "/api/v1/categories/"+categoryA, "", tokenB)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 reading foreign category, got %d", rec.Code)
	}

	// Same name is allowed for a different user
	rec = app.request("POST", "/api/v1/categories", `{"name":"Secret"}`, tokenB)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 for same name under another user, got %d: %s", rec.Code, rec.Body.String())
	}
}
