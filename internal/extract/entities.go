package extract

import (
	"fmt"

	"github.com/roach88/worldtext/internal/nbt"
)

// itemLists are the entity fields holding lists of item stacks.
var itemLists = []string{"Items", "ArmorItems", "HandItems", "Inventory"}

// Entity rewrites an entity's name and display text, then its held and
// carried items, trade offers and passengers. Reports whether anything
// changed.
func (c *Context) Entity(e *nbt.Compound) bool {
	if e == nil {
		return false
	}
	raw, _ := e.String("id")
	id := idSegment(raw)
	if id == "" {
		id = "unknown"
	}
	base := fmt.Sprintf("entity.%s.%d", id, c.counters.Index(KindEntity, id))

	changed := c.field(e, "CustomName", base+".name", CatEntityName, c.policy.Allows(CatEntityName))
	changed = c.field(e, "text", base+".text", CatEntityText, c.policy.Allows(CatEntityText)) || changed
	if changed {
		c.counters.Mark(KindEntity, id)
	}
	c.counters.Commit(KindEntity, id)

	for _, name := range itemLists {
		if items, ok := e.List(name); ok {
			for _, it := range items.Compounds() {
				changed = c.Item(it, false) || changed
			}
		}
	}
	if it, ok := e.Compound("Item"); ok {
		changed = c.Item(it, false) || changed
	}
	if recipes, ok := nbt.TryGet(e, "Offers", "Recipes"); ok {
		if list, ok := recipes.(*nbt.List); ok {
			for _, r := range list.Compounds() {
				for _, slot := range []string{"buy", "buyB", "sell"} {
					if it, ok := r.Compound(slot); ok {
						changed = c.Item(it, false) || changed
					}
				}
			}
		}
	}
	if riders, ok := e.List("Passengers"); ok {
		for _, p := range riders.Compounds() {
			changed = c.Entity(p) || changed
		}
	}
	if it, ok := e.Compound("item"); ok {
		changed = c.Item(it, false) || changed
	}
	if eq, ok := e.Compound("equipment"); ok {
		for _, slot := range eq.Keys() {
			if it, ok := eq.Compound(slot); ok {
				changed = c.Item(it, false) || changed
			}
		}
	}
	return changed
}
