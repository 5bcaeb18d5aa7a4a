package mcpserver

// ParticleFormatContract describes how tags and references are derived
// from particle bodies, for LLM consumers writing new particles.
const ParticleFormatContract = `# Perthro Particle Format Contract

A particle is a short text note: a title plus a free-text body. Tags and
references are NOT supplied separately — they are derived from the body
on every create and update.

## Tags

- Written inline as ` + "`#word`" + `.
- A tag must start with a letter; after that, letters, digits, ` + "`_`" + ` and
  ` + "`-`" + ` are allowed (e.g. ` + "`#project-x`" + `, ` + "`#q3_review`" + `).
- ` + "`#2025`" + ` is NOT a tag: a leading digit makes it a numeric reference
  candidate instead.
- The stored tag set is sorted and deduplicated.

## References

- A reference links a particle to another particle.
- UUID form: any ` + "`8-4-4-4-12`" + ` hex UUID appearing in the body
  (e.g. ` + "`123e4567-e89b-12d3-a456-426614174000`" + `).
- Numeric short form: ` + "`#123`" + ` (digits only after the hash).
- When at least one UUID is present, ONLY UUIDs are stored as references;
  numeric short refs are ignored for that particle. The two forms are
  never mixed.

## Example

` + "```" + `text
Met with the platform team about #project-x rollout.
Follow-up in 123e4567-e89b-12d3-a456-426614174000, see also #planning.
` + "```" + `

Stored tags: ` + "`planning`" + `, ` + "`project-x`" + `.
Stored references: ` + "`123e4567-e89b-12d3-a456-426614174000`" + `.
`
