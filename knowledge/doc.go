// Package knowledge serves per-agent document packages: a skills/ subtree
// for procedures and a facts/ subtree for reference data. Documents carry
// YAML front matter (name, description, optional extras) above a markdown
// body.
//
// Discovery is deliberately shallow: only documents directly under a
// category root appear in listings, while deeper files remain readable by
// explicit path. Reads canonicalize paths and refuse anything that escapes
// the category root.
package knowledge
