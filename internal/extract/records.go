package extract

import (
	"github.com/roach88/worldtext/internal/nbt"
)

// listAt returns the compounds of the list at path, or nil.
func listAt(root *nbt.Compound, path ...string) []*nbt.Compound {
	t, ok := nbt.TryGet(root, path...)
	if !ok {
		return nil
	}
	l, ok := t.(*nbt.List)
	if !ok {
		return nil
	}
	return l.Compounds()
}

// firstList returns the first list found among paths.
func firstList(root *nbt.Compound, paths ...[]string) []*nbt.Compound {
	for _, p := range paths {
		if _, ok := nbt.TryGet(root, p...); ok {
			return listAt(root, p...)
		}
	}
	return nil
}

// Chunk rewrites the block entities of a region chunk. Chunks written before
// entities moved to their own files also carry Level.Entities.
func (c *Context) Chunk(root *nbt.Compound) bool {
	changed := false
	for _, be := range firstList(root, []string{"block_entities"}, []string{"Level", "TileEntities"}) {
		changed = c.BlockEntity(be) || changed
	}
	for _, e := range listAt(root, "Level", "Entities") {
		changed = c.Entity(e) || changed
	}
	return c.record(changed)
}

// EntityChunk rewrites an entity region chunk.
func (c *Context) EntityChunk(root *nbt.Compound) bool {
	changed := false
	for _, e := range firstList(root, []string{"Entities"}, []string{"Level", "Entities"}) {
		changed = c.Entity(e) || changed
	}
	return c.record(changed)
}

// Scoreboard rewrites objective display names and team names, prefixes and
// suffixes in scoreboard.dat.
func (c *Context) Scoreboard(root *nbt.Compound) bool {
	changed := false
	for _, o := range listAt(root, "data", "Objectives") {
		name, _ := o.String("Name")
		changed = c.field(o, "DisplayName", "score.objective."+name+".name",
			CatScoreObjectiveName, c.policy.Allows(CatScoreObjectiveName)) || changed
	}
	for _, t := range listAt(root, "data", "Teams") {
		name, _ := t.String("Name")
		base := "score.team." + name
		changed = c.field(t, "DisplayName", base+".name",
			CatScoreTeamName, c.policy.Allows(CatScoreTeamName)) || changed
		changed = c.field(t, "MemberNamePrefix", base+".prefix",
			CatScoreTeamPrefix, c.policy.Allows(CatScoreTeamPrefix)) || changed
		changed = c.field(t, "MemberNameSuffix", base+".suffix",
			CatScoreTeamSuffix, c.policy.Allows(CatScoreTeamSuffix)) || changed
	}
	return c.record(changed)
}

// Level rewrites the names of custom boss bars stored in level.dat.
func (c *Context) Level(root *nbt.Compound) bool {
	t, ok := nbt.TryGet(root, "Data", "CustomBossEvents")
	if !ok {
		return c.record(false)
	}
	events, ok := t.(*nbt.Compound)
	if !ok {
		return c.record(false)
	}
	changed := false
	for _, id := range events.Keys() {
		bar, ok := events.Compound(id)
		if !ok {
			continue
		}
		changed = c.field(bar, "Name", "bossbar."+idSegment(id)+".name",
			CatBossbar, c.policy.Allows(CatBossbar)) || changed
	}
	return c.record(changed)
}

// Structure rewrites the block entities and entities saved in a structure
// template.
func (c *Context) Structure(root *nbt.Compound) bool {
	changed := false
	for _, b := range listAt(root, "blocks") {
		if be, ok := b.Compound("nbt"); ok {
			changed = c.BlockEntity(be) || changed
		}
	}
	for _, e := range listAt(root, "entities") {
		if en, ok := e.Compound("nbt"); ok {
			changed = c.Entity(en) || changed
		}
	}
	if changed {
		c.log.Info("structure rewritten")
	}
	return c.record(changed)
}

// Text rewrites a single text component under scope using cat's dedup flag.
// Used for values that do not come from a known record layout.
func (c *Context) Text(scope, text string, cat Category) (string, int) {
	c.enter(scope)
	return c.rewrite(text, componentRules, cat, c.policy.Allows(cat), false)
}
