package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/worldtext/internal/nbt"
)

// containers are the block entities handled as named inventories.
var containers = map[string]bool{
	"chest": true, "trapped_chest": true, "barrel": true, "shulker_box": true,
	"furnace": true, "smoker": true, "blast_furnace": true,
	"hopper": true, "dispenser": true, "dropper": true, "crafter": true,
	"brewing_stand": true, "campfire": true, "soul_campfire": true,
	"chiseled_bookshelf": true,
}

// singleItem maps block entities holding one item to the field storing it.
var singleItem = map[string]string{
	"lectern":       "Book",
	"jukebox":       "RecordItem",
	"decorated_pot": "item",
}

// blockKind maps a block or block entity id to the handler kind. Colour,
// wood and mode variants share one handler.
func blockKind(id string) string {
	seg := idSegment(id)
	switch {
	case strings.HasSuffix(seg, "hanging_sign"):
		return "hanging_sign"
	case strings.HasSuffix(seg, "sign"):
		return "sign"
	case strings.HasSuffix(seg, "shulker_box"):
		return "shulker_box"
	case strings.HasSuffix(seg, "command_block"):
		return "command_block"
	}
	return seg
}

// BlockEntity rewrites one block entity, dispatching on its id. Unknown
// kinds are a no-op. Reports whether anything changed.
func (c *Context) BlockEntity(be *nbt.Compound) bool {
	if be == nil {
		return false
	}
	id, _ := be.String("id")
	return c.blockEntityAs(be, id)
}

func (c *Context) blockEntityAs(be *nbt.Compound, id string) bool {
	kind := blockKind(id)
	var changed bool
	switch {
	case kind == "spawner":
		changed = c.spawner(be)
	case containers[kind]:
		changed = c.container(be, kind)
	case kind == "sign":
		changed = c.sign(be, false)
	case kind == "hanging_sign":
		changed = c.sign(be, true)
	case kind == "command_block":
		changed = c.commandBlock(be)
	case kind == "beehive" || kind == "bee_nest":
		changed = c.beehive(be)
	case singleItem[kind] != "":
		if it, ok := be.Compound(singleItem[kind]); ok {
			changed = c.Item(it, false)
		}
	}
	if changed {
		x, _ := be.Int("x")
		y, _ := be.Int("y")
		z, _ := be.Int("z")
		c.log.Info("block entity rewritten", "kind", kind, "x", x, "y", y, "z", z)
	}
	return changed
}

func (c *Context) container(be *nbt.Compound, kind string) bool {
	scope := fmt.Sprintf("block.%s.%d.name", kind, c.counters.Index(KindBlock, kind))
	changed := c.field(be, "CustomName", scope, CatContainerName, c.policy.Allows(CatContainerName))
	if changed {
		c.counters.Mark(KindBlock, kind)
	}
	c.counters.Commit(KindBlock, kind)

	if lock, ok := be.Get("Lock"); ok {
		c.log.Info("container lock needs manual review", "kind", kind, "lock", nbt.ToValue(lock))
	}
	if items, ok := be.List("Items"); ok {
		for _, it := range items.Compounds() {
			changed = c.Item(it, true) || changed
		}
	}
	return changed
}

// sign handles both layouts: Text1..Text4 before 1.20 and per-side
// front_text/back_text messages after.
func (c *Context) sign(be *nbt.Compound, hanging bool) bool {
	name := "sign"
	if hanging {
		name = "hanging_sign"
	}
	n := c.counters.Index(KindBlock, name)
	dedup := c.policy.Allows(CatSign)

	changed := false
	if !hanging && be.Has("Text1") {
		for i := 1; i <= 4; i++ {
			line := "Text" + strconv.Itoa(i)
			scope := fmt.Sprintf("block.sign.%d.text%d", n, i)
			changed = c.field(be, line, scope, CatSign, dedup) || changed
		}
	} else {
		for _, side := range []string{"front_text", "back_text"} {
			msgs, ok := nbt.TryGet(be, side, "messages")
			if !ok {
				continue
			}
			list, ok := msgs.(*nbt.List)
			if !ok {
				continue
			}
			prefix := fmt.Sprintf("block.%s.%d.%s", name, n, side)
			changed = c.fieldList(list, prefix, 1, CatSign, dedup) || changed
		}
	}
	if changed {
		c.counters.Mark(KindBlock, name)
	}
	c.counters.Commit(KindBlock, name)
	return changed
}

func (c *Context) commandBlock(be *nbt.Compound) bool {
	cmd, ok := be.String("Command")
	if !ok {
		return false
	}
	const kind = "command_block"
	c.enter(fmt.Sprintf("block.%s.%d.command", kind, c.counters.Index(KindBlock, kind)))
	out, n := c.rewrite(cmd, commandRules, CatCommandBlock, c.policy.Allows(CatCommandBlock), false)
	if loc := reSelectorName.FindStringIndex(out); loc != nil {
		c.log.Info("target selector name needs manual review", "command", out, "offset", loc[0])
	}
	if n == 0 {
		return false
	}
	be.Set("Command", nbt.String(out))
	c.counters.Mark(KindBlock, kind)
	c.counters.Commit(KindBlock, kind)
	return true
}

func (c *Context) spawner(be *nbt.Compound) bool {
	changed := false
	if c.legacySpawners {
		if sd, ok := be.Compound("SpawnData"); ok {
			changed = c.Entity(sd)
		}
	} else if sd, ok := nbt.TryGet(be, "SpawnData", "entity"); ok {
		if e, ok := sd.(*nbt.Compound); ok {
			changed = c.Entity(e)
		}
	}

	potentials, ok := be.List("SpawnPotentials")
	if !ok {
		return changed
	}
	path := []string{"data", "entity"}
	if c.legacySpawners {
		path = []string{"Entity"}
	}
	for _, p := range potentials.Compounds() {
		if t, ok := nbt.TryGet(p, path...); ok {
			if e, ok := t.(*nbt.Compound); ok {
				changed = c.Entity(e) || changed
			}
		}
	}
	return changed
}

func (c *Context) beehive(be *nbt.Compound) bool {
	changed := false
	for _, layout := range [][2]string{{"Bees", "EntityData"}, {"bees", "entity_data"}} {
		bees, ok := be.List(layout[0])
		if !ok {
			continue
		}
		for _, bee := range bees.Compounds() {
			if e, ok := bee.Compound(layout[1]); ok {
				changed = c.Entity(e) || changed
			}
		}
	}
	return changed
}
