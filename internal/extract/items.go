package extract

import (
	"fmt"
	"strconv"

	"github.com/roach88/worldtext/internal/nbt"
)

// Item rewrites the text of one item stack and of everything nested in it:
// block entity data, entity data, container and bundle contents.
// inContainer selects the items_in_container dedup flag. Stacks without
// extra data are a no-op. Reports whether anything changed.
func (c *Context) Item(item *nbt.Compound, inContainer bool) bool {
	if item == nil || item.Len() == 0 {
		return false
	}
	tag, hasTag := item.Compound("tag")
	comps, hasComps := item.Compound("components")
	if !hasTag && !hasComps {
		return false
	}

	rawID, _ := item.String("id")
	id := idSegment(rawID)
	if id == "" {
		id = "unknown"
	}
	base := fmt.Sprintf("item.%s.%d", id, c.counters.Index(KindItem, id))
	dedup := func(cat Category) bool { return c.policy.AllowsItem(cat, inContainer) }

	changed := false
	if hasTag {
		changed = c.itemTag(tag, base, dedup) || changed
	}
	if hasComps {
		changed = c.itemComponents(comps, base, dedup) || changed
	}
	if changed {
		c.counters.Mark(KindItem, id)
	}
	c.counters.Commit(KindItem, id)

	if hasTag {
		if be, ok := tag.Compound("BlockEntityTag"); ok {
			changed = c.blockEntityAs(be, rawID) || changed
		}
		if e, ok := tag.Compound("EntityTag"); ok {
			changed = c.Entity(e) || changed
		}
	}
	if hasComps {
		if be, ok := comps.Compound("minecraft:block_entity_data"); ok {
			beID, ok := be.String("id")
			if !ok {
				beID = rawID
			}
			changed = c.blockEntityAs(be, beID) || changed
		}
		if e, ok := comps.Compound("minecraft:entity_data"); ok {
			changed = c.Entity(e) || changed
		}
		if slots, ok := comps.List("minecraft:container"); ok {
			for _, slot := range slots.Compounds() {
				if inner, ok := slot.Compound("item"); ok {
					changed = c.Item(inner, true) || changed
				}
			}
		}
		if bundle, ok := comps.List("minecraft:bundle_contents"); ok {
			for _, inner := range bundle.Compounds() {
				changed = c.Item(inner, true) || changed
			}
		}
	}
	return changed
}

// itemTag handles the pre-1.20.5 "tag" compound.
func (c *Context) itemTag(tag *nbt.Compound, base string, dedup func(Category) bool) bool {
	changed := false
	display, hasDisplay := tag.Compound("display")
	if hasDisplay {
		changed = c.field(display, "Name", base+".name", CatItemName, dedup(CatItemName)) || changed
		if lore, ok := display.List("Lore"); ok {
			changed = c.fieldList(lore, base+".lore.", 0, CatItemLore, dedup(CatItemLore)) || changed
		}
	}
	if pages, ok := tag.List("pages"); ok {
		changed = c.fieldList(pages, base+".page.", 0, CatItemPages, dedup(CatItemPages)) || changed
	}
	if title, ok := tag.String("title"); ok {
		if !hasDisplay {
			display = nbt.NewCompound()
			tag.Set("display", display)
		}
		if !display.Has("Name") {
			display.Set("Name", nbt.String(c.bookTitle(title, base+".title", dedup(CatItemTitle))))
			changed = true
		}
	}
	return changed
}

// itemComponents handles the 1.20.5+ "components" compound. Text components
// stored as compounds are left alone; only string-encoded JSON is rewritten.
func (c *Context) itemComponents(comps *nbt.Compound, base string, dedup func(Category) bool) bool {
	changed := c.field(comps, "minecraft:custom_name", base+".name", CatItemName, dedup(CatItemName))
	changed = c.field(comps, "minecraft:item_name", base+".item_name", CatItemName, dedup(CatItemName)) || changed
	if lore, ok := comps.List("minecraft:lore"); ok {
		changed = c.fieldList(lore, base+".lore.", 0, CatItemLore, dedup(CatItemLore)) || changed
	}

	book, ok := comps.Compound("minecraft:written_book_content")
	if !ok {
		return changed
	}
	if pages, ok := book.List("pages"); ok {
		for i, page := range pages.Items {
			scope := base + ".page." + strconv.Itoa(i)
			switch p := page.(type) {
			case nbt.String:
				if out, ok := c.rewriteField(string(p), scope, CatItemPages, dedup(CatItemPages)); ok {
					pages.Items[i] = nbt.String(out)
					changed = true
				}
			case *nbt.Compound:
				changed = c.field(p, "raw", scope, CatItemPages, dedup(CatItemPages)) || changed
			}
		}
	}
	if title, ok := nbt.TryGet(book, "title", "raw"); ok {
		if s, ok := title.(nbt.String); ok && !comps.Has("minecraft:custom_name") {
			comps.Set("minecraft:custom_name", nbt.String(c.bookTitle(string(s), base+".title", dedup(CatItemTitle))))
			changed = true
		}
	}
	return changed
}

// bookTitle keys a written book's plain title and renders the display name
// that replaces it.
func (c *Context) bookTitle(title, scope string, dedup bool) string {
	c.enter(scope)
	key, src := c.reg.Resolve(title, CatItemTitle, dedup, nil)
	c.count(src)
	c.log.Debug("book title replaced", "key", key, "text", title, "source", string(src))
	return `{"translate":"` + key + `","italic":false}`
}

// field rewrites the string parent[name] as a text component under scope.
// Absent or non-string fields are a no-op.
func (c *Context) field(parent *nbt.Compound, name, scope string, cat Category, dedup bool) bool {
	s, ok := parent.String(name)
	if !ok {
		return false
	}
	out, ok := c.rewriteField(s, scope, cat, dedup)
	if ok {
		parent.Set(name, nbt.String(out))
	}
	return ok
}

// fieldList rewrites every string in list; item i uses scope prefix+(i+offset).
func (c *Context) fieldList(list *nbt.List, prefix string, offset int, cat Category, dedup bool) bool {
	changed := false
	for i, it := range list.Items {
		s, ok := it.(nbt.String)
		if !ok {
			continue
		}
		if out, ok := c.rewriteField(string(s), prefix+strconv.Itoa(i+offset), cat, dedup); ok {
			list.Items[i] = nbt.String(out)
			changed = true
		}
	}
	return changed
}

func (c *Context) rewriteField(s, scope string, cat Category, dedup bool) (string, bool) {
	c.enter(scope)
	out, n := c.rewrite(s, componentRules, cat, dedup, false)
	return out, n > 0
}
