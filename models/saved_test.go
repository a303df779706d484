package models

import (
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plateful/plateful/apperr"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("could not open test db: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &SavedRecipe{}, &AuthAccount{}); err != nil {
		t.Fatalf("could not migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) User {
	t.Helper()
	user := User{Name: "Test User", Email: email, Password: "pw123secret"}
	if err := user.HashPassword(); err != nil {
		t.Fatalf("could not hash password: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("could not create user: %v", err)
	}
	return user
}

func saveTestRecipe(t *testing.T, db *gorm.DB, userID uint, extID int) *SavedRecipe {
	t.Helper()
	recipe, err := SaveRecipe(userID, SaveRecipeInput{
		ExternalRecipeID: extID,
		Title:            fmt.Sprintf("Recipe %d", extID),
		ImageURL:         fmt.Sprintf("http://img/%d.png", extID),
		IsVegan:          extID%2 == 0,
		ReadyInMinutes:   20,
	}, db)
	if err != nil {
		t.Fatalf("could not save recipe %d: %v", extID, err)
	}
	return recipe
}

func listIDs(t *testing.T, db *gorm.DB, userID uint) []uint {
	t.Helper()
	recipes, err := ListSaved(userID, db)
	if err != nil {
		t.Fatalf("could not list saved recipes: %v", err)
	}
	ids := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestSaveRecipe_AppendsToServingOrder(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")

	first := saveTestRecipe(t, db, user.ID, 5)
	second := saveTestRecipe(t, db, user.ID, 6)

	recipes, err := ListSaved(user.ID, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipes) != 2 {
		t.Fatalf("expected 2 saved recipes, got %d", len(recipes))
	}
	if recipes[0].ID != first.ID || recipes[1].ID != second.ID {
		t.Errorf("new saves must land at the end, got %v then %v", recipes[0].ID, recipes[1].ID)
	}
	if recipes[0].ExternalRecipeID != 5 {
		t.Errorf("expected externalRecipeId 5, got %d", recipes[0].ExternalRecipeID)
	}
}

func TestSaveRecipe_DuplicateRejected(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	saveTestRecipe(t, db, user.ID, 42)

	_, err := SaveRecipe(user.ID, SaveRecipeInput{
		ExternalRecipeID: 42,
		Title:            "Soup again",
		ImageURL:         "http://i/1.png",
		IsVegan:          true,
		ReadyInMinutes:   20,
	}, db)
	if !apperr.Is(err, apperr.ErrDuplicateSave) {
		t.Fatalf("expected duplicate_save, got %v", err)
	}

	var count int64
	db.Model(&SavedRecipe{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("duplicate save must not grow the collection, got %d rows", count)
	}
}

func TestSaveRecipe_SameRecipeDifferentOwners(t *testing.T) {
	db := testDB(t)
	alice := createTestUser(t, db, "alice@x.com")
	bob := createTestUser(t, db, "bob@x.com")

	saveTestRecipe(t, db, alice.ID, 42)
	saveTestRecipe(t, db, bob.ID, 42)

	if got := len(listIDs(t, db, alice.ID)); got != 1 {
		t.Errorf("alice should have 1 recipe, got %d", got)
	}
	if got := len(listIDs(t, db, bob.ID)); got != 1 {
		t.Errorf("bob should have 1 recipe, got %d", got)
	}
}

func TestSaveRecipe_ReadyInMinutesMustBePositive(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")

	_, err := SaveRecipe(user.ID, SaveRecipeInput{
		ExternalRecipeID: 1,
		Title:            "Broken",
		ImageURL:         "http://i/1.png",
		ReadyInMinutes:   0,
	}, db)
	if !apperr.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestListSaved_EmptyCollection(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")

	recipes, err := ListSaved(user.ID, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipes) != 0 {
		t.Errorf("expected empty slice, got %d entries", len(recipes))
	}
}

func TestListSaved_OwnerNotFound(t *testing.T) {
	db := testDB(t)

	_, err := ListSaved(9999, db)
	if !apperr.Is(err, apperr.ErrOwnerNotFound) {
		t.Fatalf("expected owner_not_found, got %v", err)
	}
}

func TestDeleteSaved_RemovesRowAndOrderEntry(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	first := saveTestRecipe(t, db, user.ID, 1)
	second := saveTestRecipe(t, db, user.ID, 2)

	if err := DeleteSaved(user.ID, first.ID, db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := listIDs(t, db, user.ID)
	if len(ids) != 1 || ids[0] != second.ID {
		t.Errorf("expected only %d to remain, got %v", second.ID, ids)
	}

	refreshed, err := GetUserByID(user.ID, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range refreshed.SavedOrder {
		if id == first.ID {
			t.Errorf("deleted id %d still present in serving order %v", first.ID, refreshed.SavedOrder)
		}
	}
}

func TestDeleteSaved_CrossOwnerReportsNotFound(t *testing.T) {
	db := testDB(t)
	alice := createTestUser(t, db, "alice@x.com")
	bob := createTestUser(t, db, "bob@x.com")
	aliceRecipe := saveTestRecipe(t, db, alice.ID, 1)
	saveTestRecipe(t, db, bob.ID, 2)

	err := DeleteSaved(bob.ID, aliceRecipe.ID, db)
	if !apperr.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not_found for a foreign id, got %v", err)
	}

	if got := len(listIDs(t, db, alice.ID)); got != 1 {
		t.Errorf("alice's collection changed, got %d entries", got)
	}
	if got := len(listIDs(t, db, bob.ID)); got != 1 {
		t.Errorf("bob's collection changed, got %d entries", got)
	}
}

func TestDeleteSaved_UnsaveFreesNaturalKey(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	recipe := saveTestRecipe(t, db, user.ID, 42)

	if err := DeleteSaved(user.ID, recipe.ID, db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// saving the same upstream recipe again must work after an unsave
	saveTestRecipe(t, db, user.ID, 42)
}

func TestReorderSaved_Permutation(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	a := saveTestRecipe(t, db, user.ID, 1)
	b := saveTestRecipe(t, db, user.ID, 2)
	c := saveTestRecipe(t, db, user.ID, 3)

	ordered, err := ReorderSaved(user.ID, []uint{c.ID, a.ID, b.ID}, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []uint{c.ID, a.ID, b.ID}
	for i, r := range ordered {
		if r.ID != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], r.ID)
		}
	}

	// order must survive a fresh read
	ids := listIDs(t, db, user.ID)
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("persisted position %d: expected %d, got %d", i, want[i], ids[i])
		}
	}
}

func TestReorderSaved_RejectsForeignID(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	saveTestRecipe(t, db, user.ID, 1)

	before := listIDs(t, db, user.ID)

	_, err := ReorderSaved(user.ID, []uint{98765}, db)
	if !apperr.Is(err, apperr.ErrInvalidReorder) {
		t.Fatalf("expected invalid_reorder, got %v", err)
	}

	after := listIDs(t, db, user.ID)
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("failed reorder must leave the order untouched: %v vs %v", before, after)
	}
}

func TestReorderSaved_RejectsDropByOmission(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	a := saveTestRecipe(t, db, user.ID, 1)
	saveTestRecipe(t, db, user.ID, 2)
	saveTestRecipe(t, db, user.ID, 3)

	_, err := ReorderSaved(user.ID, []uint{a.ID}, db)
	if !apperr.Is(err, apperr.ErrInvalidReorder) {
		t.Fatalf("expected invalid_reorder for a partial list, got %v", err)
	}
}

func TestReorderSaved_RejectsDuplicateIDs(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	a := saveTestRecipe(t, db, user.ID, 1)
	saveTestRecipe(t, db, user.ID, 2)
	c := saveTestRecipe(t, db, user.ID, 3)

	_, err := ReorderSaved(user.ID, []uint{a.ID, a.ID, c.ID}, db)
	if !apperr.Is(err, apperr.ErrInvalidReorder) {
		t.Fatalf("expected invalid_reorder for duplicate ids, got %v", err)
	}
}

func TestReorderSaved_EmptyList(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")

	_, err := ReorderSaved(user.ID, nil, db)
	if !apperr.Is(err, apperr.ErrInvalidReorder) {
		t.Fatalf("expected invalid_reorder for empty list, got %v", err)
	}
}

func TestReorderSaved_SingleElementNoop(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")
	recipe := saveTestRecipe(t, db, user.ID, 42)

	ordered, err := ReorderSaved(user.ID, []uint{recipe.ID}, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ordered) != 1 || ordered[0].ID != recipe.ID {
		t.Errorf("expected the same single-element list back, got %v", ordered)
	}
}

func TestCheckPassword(t *testing.T) {
	db := testDB(t)
	user := createTestUser(t, db, "a@x.com")

	stored, err := GetUserByID(user.ID, db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.CheckPassword("pw123secret") {
		t.Error("correct password rejected")
	}
	if stored.CheckPassword("wrong") {
		t.Error("wrong password accepted")
	}

	// oauth-only accounts have no hash and never match
	oauthOnly := User{Name: "No Pass", Email: "oauth@x.com"}
	if err := db.Create(&oauthOnly).Error; err != nil {
		t.Fatalf("could not create user: %v", err)
	}
	if oauthOnly.CheckPassword("") {
		t.Error("empty hash must never match")
	}
}
