package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pizza-service/internal/cli"
	"pizza-service/internal/models"
	"pizza-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `pizzas:
  - name: Margherita
    description: Tomato and mozzarella
    ingredients: [tomato, mozzarella, basil]
    weight: 450 g
    price: "9.50"
    vegetarian: true
  - name: Pepperoni
    description: Spicy salami
    ingredients: [tomato, mozzarella, pepperoni]
    weight: 500 g
    price: 11.25
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := cli.NewRootCmdForTest()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func dbArgs(dbPath string, args ...string) []string {
	return append(args, "--driver", store.DriverSQLite, "--database-url", dbPath)
}

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func openDB(t *testing.T, dbPath string) *store.Store {
	t.Helper()
	db, err := store.NewStore(store.DriverSQLite, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pizza.db")

	out, err := run(t, dbArgs(dbPath, "migrate")...)
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")

	// Running it twice is harmless.
	_, err = run(t, dbArgs(dbPath, "migrate")...)
	require.NoError(t, err)
}

func TestSeedCmd_LoadsCatalog(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pizza.db")
	catalog := writeCatalog(t, dir, catalogYAML)

	out, err := run(t, dbArgs(dbPath, "seed", "--file", catalog, "--upload-dir", dir)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Margherita")
	assert.Contains(t, out, "2 created, 0 skipped")

	pizzas, err := openDB(t, dbPath).GetPizzas(context.Background())
	require.NoError(t, err)
	require.Len(t, pizzas, 2)
	assert.Equal(t, "Margherita", pizzas[0].Name)
	assert.True(t, pizzas[0].IsVegetarian)
	assert.Equal(t, models.Ingredients{"tomato", "mozzarella", "basil"}, pizzas[0].Description.Ingredients)
	assert.True(t, decimal.RequireFromString("11.25").Equal(pizzas[1].Price))
}

func TestSeedCmd_SkipExisting(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pizza.db")
	catalog := writeCatalog(t, dir, catalogYAML)

	_, err := run(t, dbArgs(dbPath, "seed", "--file", catalog, "--upload-dir", dir)...)
	require.NoError(t, err)

	out, err := run(t, dbArgs(dbPath, "seed", "--file", catalog, "--upload-dir", dir, "--skip-existing")...)
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 2 skipped")
}

func TestSeedCmd_InvalidEntry(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pizza.db")
	catalog := writeCatalog(t, dir, `pizzas:
  - name: Free
    description: Costs nothing
    price: "0"
`)

	_, err := run(t, dbArgs(dbPath, "seed", "--file", catalog, "--upload-dir", dir)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pizza "Free"`)
}

func TestSeedCmd_BadYAML(t *testing.T) {
	dir := t.TempDir()
	catalog := writeCatalog(t, dir, `{{{invalid yaml`)

	_, err := run(t, dbArgs(filepath.Join(dir, "pizza.db"), "seed", "--file", catalog)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestSeedCmd_EmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	catalog := writeCatalog(t, dir, "pizzas: []\n")

	_, err := run(t, dbArgs(filepath.Join(dir, "pizza.db"), "seed", "--file", catalog)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains no pizzas")
}

func placeOrder(t *testing.T, db *store.Store) *models.Order {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	pizza := models.Pizza{
		Name:        "Margherita",
		Description: models.Description{Text: "Classic", Ingredients: models.Ingredients{"tomato"}},
		Price:       decimal.RequireFromString("9.50"),
	}
	require.NoError(t, db.CreatePizza(ctx, &pizza))

	items := []models.OrderItem{{PizzaID: pizza.ID, Quantity: 2, PriceAtOrder: pizza.Price}}
	order := &models.Order{
		CustomerName: "Jane",
		Phone:        "+15551234567",
		Address:      "1 Main St",
		TotalPrice:   models.CalculateTotal(items),
		Status:       models.OrderStatusCreated,
		CreatedAt:    time.Now().UTC(),
		Items:        items,
	}
	require.NoError(t, db.CreateOrder(ctx, order))
	return order
}

func TestOrdersListCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pizza.db")

	out, err := run(t, dbArgs(dbPath, "orders", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "no orders yet")

	db := openDB(t, dbPath)
	placeOrder(t, db)
	db.Close()

	out, err = run(t, dbArgs(dbPath, "orders", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 orders")
	assert.Contains(t, out, "Jane")
	assert.Contains(t, out, "19.00")
	assert.Contains(t, out, "Margherita x2")
}

func TestOrdersStatusCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pizza.db")
	db := openDB(t, dbPath)
	order := placeOrder(t, db)
	db.Close()

	out, err := run(t, dbArgs(dbPath, "orders", "status", "1", "preparing")...)
	require.NoError(t, err)
	assert.Contains(t, out, "order #1 is now Preparing")

	got, err := openDB(t, dbPath).GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, got.Status)
}

func TestOrdersStatusCmd_Errors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pizza.db")

	_, err := run(t, dbArgs(dbPath, "orders", "status", "abc", "Accepted")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid order id")

	_, err = run(t, dbArgs(dbPath, "orders", "status", "1", "Baking")...)
	require.Error(t, err)

	_, err = run(t, dbArgs(dbPath, "orders", "status", "42", "Accepted")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = run(t, dbArgs(dbPath, "orders", "status", "1")...)
	require.Error(t, err)
}
