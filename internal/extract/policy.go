package extract

// Category identifies which kind of field a text occurrence came from. The
// names double as the keys of the "dedupe" configuration section.
type Category string

const (
	CatItemsAll           Category = "items_all"
	CatItemName           Category = "items_name"
	CatItemLore           Category = "items_lore"
	CatItemPages          Category = "items_pages"
	CatItemTitle          Category = "items_title"
	CatItemsInContainer   Category = "items_in_container"
	CatContainerName      Category = "containers_name"
	CatEntityName         Category = "entities_name"
	CatEntityText         Category = "entities_text"
	CatCommandBlock       Category = "command_blocks"
	CatSign               Category = "signs"
	CatScoresAll          Category = "scores_all"
	CatScoreObjectiveName Category = "scores_objectives_name"
	CatScoreTeamName      Category = "scores_teams_name"
	CatScoreTeamPrefix    Category = "scores_teams_prefix"
	CatScoreTeamSuffix    Category = "scores_teams_suffix"
	CatBossbar            Category = "bossbar"
	CatDatapack           Category = "datapacks"
	CatAdvancement        Category = "advancements"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CatItemsAll, CatItemName, CatItemLore, CatItemPages, CatItemTitle,
	CatItemsInContainer, CatContainerName, CatEntityName, CatEntityText,
	CatCommandBlock, CatSign, CatScoresAll, CatScoreObjectiveName,
	CatScoreTeamName, CatScoreTeamPrefix, CatScoreTeamSuffix, CatBossbar,
	CatDatapack, CatAdvancement,
}

// catchAll maps a category to the flag that switches on its whole family.
var catchAll = map[Category]Category{
	CatItemName:           CatItemsAll,
	CatItemLore:           CatItemsAll,
	CatItemPages:          CatItemsAll,
	CatItemTitle:          CatItemsAll,
	CatScoreObjectiveName: CatScoresAll,
	CatScoreTeamName:      CatScoresAll,
	CatScoreTeamPrefix:    CatScoresAll,
	CatScoreTeamSuffix:    CatScoresAll,
}

// Policy holds one dedup flag per category. true means identical text reuses
// the first key minted for it; false means every occurrence mints a fresh
// key. Missing categories are false.
type Policy map[Category]bool

// Allows reports whether occurrences in cat may reuse an earlier key.
func (p Policy) Allows(cat Category) bool {
	if p[cat] {
		return true
	}
	if family, ok := catchAll[cat]; ok {
		return p[family]
	}
	return false
}

// AllowsItem is Allows for item fields, additionally honouring the
// items_in_container flag for items reached through a container.
func (p Policy) AllowsItem(cat Category, inContainer bool) bool {
	return p.Allows(cat) || (inContainer && p[CatItemsInContainer])
}
