// Package harness runs extraction scenarios: small, self-contained inputs fed
// to one extraction context, with assertions on the rewritten records and the
// resulting key tables.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  dedupe: { signs: true }
//	  default_keys: { "Legendary Sword": item.custom.sword }
//	records:
//	  - name: sign
//	    kind: block_entity
//	    value: { id: "minecraft:sign", Text1: '{"text":"Welcome"}' }
//	  - kind: datafile
//	    path: data/ns/function/greet.mcfunction
//	    text: |
//	      tellraw @a {"text":"Hello"}
//	assertions:
//	  - type: key_text
//	    key: block.sign.1.text1.1
//	    text: Welcome
//	  - type: field_equals
//	    record: sign
//	    path: Text1
//	    value: '{"translate":"block.sign.1.text1.1"}'
//
// Config uses the configuration file layout and is validated against the
// same schema, so a scenario exercises exactly what a run would.
//
// # Record Kinds
//
//   - item, entity, block_entity, chunk, entity_chunk, scoreboard, level,
//     structure: Value is an NBT record written as plain values
//   - datafile: Text is the content of the data-pack file at Path
//   - text: Text is one component rewritten under Scope with Category's
//     dedup flag
//
// # Assertion Types
//
//   - key_text: Key maps to Text in the raw table
//   - key_count: the raw table has Count rows
//   - merged_count: the merged table has Count rows
//   - field_equals: the string at dotted Path in Record's output equals Value
//   - line_equals: line Line of Record's output text equals Value
//
// # Deterministic Testing
//
// Records are processed strictly in order by a fresh context, and golden
// snapshots use canonical JSON, so results are reproducible byte for byte.
package harness
