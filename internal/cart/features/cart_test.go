package features

import (
	"context"
	"fmt"
	"testing"

	"github.com/apada-appleid/biosell-sub000/internal/cart"
	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"github.com/apada-appleid/biosell-sub000/internal/storage"
	"github.com/cucumber/godog"
)

type cartTestContext struct {
	store    *cart.Store
	products map[string]domain.Product
}

func (c *cartTestContext) reset() {
	c.store = cart.NewStore(storage.NewMemoryStorage(), nil)
	c.products = map[string]domain.Product{}
}

func (c *cartTestContext) anEmptyCart() error {
	if !c.store.Snapshot().IsEmpty() {
		return fmt.Errorf("expected an empty cart")
	}
	return nil
}

func (c *cartTestContext) aProductPricedAtFromShop(id string, price int, shop string) error {
	c.products[id] = domain.Product{ID: id, Title: id, Price: int64(price), Shop: domain.Shop{ID: shop}}
	return nil
}

func (c *cartTestContext) product(id string) (domain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("unknown product %q", id)
	}
	return p, nil
}

func (c *cartTestContext) iAddOf(quantity int, id string) error {
	p, err := c.product(id)
	if err != nil {
		return err
	}
	c.store.AddToCart(context.Background(), p, quantity)
	return nil
}

func (c *cartTestContext) iRemove(id string) error {
	c.store.RemoveFromCart(context.Background(), id)
	return nil
}

func (c *cartTestContext) iUndoTheLastRemoval() error {
	c.store.UndoRemove(context.Background())
	return nil
}

func (c *cartTestContext) iSetTheQuantityOfTo(id string, quantity int) error {
	c.store.UpdateQuantity(context.Background(), id, quantity)
	return nil
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if got := len(c.store.Snapshot().Items); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theCartHasOf(quantity int, id string) error {
	snap := c.store.Snapshot()
	i := snap.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("no line for %q", id)
	}
	if got := snap.Items[i].Quantity; got != quantity {
		return fmt.Errorf("expected %d of %q, got %d", quantity, id, got)
	}
	return nil
}

func (c *cartTestContext) theCartHasNoLineFor(id string) error {
	snap := c.store.Snapshot()
	if snap.IndexOf(id) >= 0 {
		return fmt.Errorf("unexpected line for %q", id)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(total int) error {
	if got := c.store.Snapshot().Total; got != int64(total) {
		return fmt.Errorf("expected total %d, got %d", total, got)
	}
	return nil
}

func (c *cartTestContext) theLastRemovedItemIsOf(quantity int, id string) error {
	last := c.store.LastRemoved()
	if last == nil {
		return fmt.Errorf("undo buffer is empty")
	}
	if last.Product.ID != id || last.Quantity != quantity {
		return fmt.Errorf("expected %d of %q in undo buffer, got %d of %q", quantity, id, last.Quantity, last.Product.ID)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^a product "([^"]*)" priced at (\d+) from shop "([^"]*)"$`, tc.aProductPricedAtFromShop)

	// When steps
	ctx.Step(`^I add (-?\d+) of "([^"]*)"$`, tc.iAddOf)
	ctx.Step(`^I remove "([^"]*)"$`, tc.iRemove)
	ctx.Step(`^I undo the last removal$`, tc.iUndoTheLastRemoval)
	ctx.Step(`^I set the quantity of "([^"]*)" to (-?\d+)$`, tc.iSetTheQuantityOfTo)

	// Then steps
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^the cart has (\d+) of "([^"]*)"$`, tc.theCartHasOf)
	ctx.Step(`^the cart has no line for "([^"]*)"$`, tc.theCartHasNoLineFor)
	ctx.Step(`^the cart total is (\d+)$`, tc.theCartTotalIs)
	ctx.Step(`^the last removed item is (\d+) of "([^"]*)"$`, tc.theLastRemovedItemIsOf)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
