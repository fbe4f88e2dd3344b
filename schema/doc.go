// Package schema builds and enforces the JSON Schemas that describe each
// structured result requested from a language model.
//
// Schemas are constructed programmatically:
//
//	plan := schema.Object().
//		Field("title", schema.String().Desc("Story title").Required()).
//		Field("characters", schema.Array(schema.Object().
//			Field("name", schema.String().Required()).
//			Field("description", schema.String().Required())).Required()).
//		MustBuild()
//
// Build checks the schema for internal consistency (min <= max, valid
// patterns, arrays with items). [Validate] checks a model response against a
// built schema and reports the first violation with its JSON path:
//
//	if err := schema.Validate(plan, []byte(resp.Content)); err != nil {
//		// e.g. schema: $.characters[0]: missing required property "name"
//	}
package schema
