// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns segmented assistant messages into terminal or HTML
// output with interactive citation chips.
//
// Markdown is never parsed here. Each citation marker is swapped for an
// opaque placeholder, the whole document goes through the markdown engine
// once (glamour for terminals, goldmark for HTML), and the placeholders are
// then replaced by chips. Content without markers skips the placeholder
// step entirely.
//
// The package also builds the view models shared by every front end: the
// citation Popover and the "Sources:" footer.
package render
