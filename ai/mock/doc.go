// Package mock provides deterministic test doubles for the ai package.
// The default behavior derives stable pseudo-random vectors from the input
// text, so identical inputs always embed to identical vectors; tests can
// override behavior through the function fields.
package mock
