// Package normalize canonicalizes author, publisher and magazine names.
//
// Catalog data spells the same entity many ways: with role tags such as
// "[著]", with a "∥" reading after a publisher name, in full-width latin, or
// in either kana syllabary. Normalize maps every variant to one canonical id
// and the Registry keeps the best display form seen so far, preferring han
// over latin over katakana over hiragana.
package normalize
