// Package decision turns analyzed windows into keep/reject decisions. Speech
// above the sensitivity threshold is always kept, silence runs longer than the
// configured minimum are rejected, music passes unless a supplied video
// quality score fails the gate, and everything else is quality-weighted with
// ties favoring retention. Suggested cut points snap to a nearby beat when
// rhythm mode allows it, otherwise to the nearest zero crossing.
package decision
