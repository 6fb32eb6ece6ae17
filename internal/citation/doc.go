// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation splits assistant message text into renderable segments.
//
// Inline markers of the form [n] (ASCII digits) become citation references
// resolved against the message's citation list. Everything else, including
// malformed markers such as [abc] or a lone "[", stays literal text.
//
// Split is pure: it shares no state, never mutates its inputs and always
// returns the same segments for the same input. Concatenating Raw() over the
// result reproduces the content byte for byte.
//
//	segs := citation.Split(msg.Content, msg.Citations)
//	for _, s := range segs {
//	    if s.IsCitation() && s.Citation != nil {
//	        fmt.Println(s.Number, s.Citation.DisplayName())
//	    }
//	}
package citation
