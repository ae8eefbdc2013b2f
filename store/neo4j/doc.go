// Package neo4j implements store.GraphStore over the Neo4j Bolt driver.
// All node kinds share one MERGE path keyed on externalId, so merge
// semantics cannot drift between Event, Continuance, Person, and Document
// nodes. Queries are plain Cypher with named parameters; no server-side
// procedures are required.
package neo4j
