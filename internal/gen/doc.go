// Package gen renders parsed messages into per-language codec sources.
//
// Generation is two stages. Build lowers messages into a Unit (types, slots,
// offsets, target scalar names) once per backend; Backend.Render turns the
// Unit into source text. Framing decisions (header bytes, offsets,
// little-endian payload) live in Build so every backend agrees on them.
package gen
