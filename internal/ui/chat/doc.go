// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea model of the chat screen.

The screen shows a skeleton until the session list arrives, then the open
session rendered through render.Terminal with citation chips. Store calls,
questions and source views run as tea.Cmds; their results come back as the
messages in messages.go and are applied whenever they arrive.

# Keys

	tab / shift+tab   focus next / previous citation
	enter             toggle the citation popover (or send, in the input)
	v                 open the focused citation's source
	y                 copy the last reply
	ctrl+b            toggle the session sidebar
	/  r  d  n        sidebar: search, rename, delete, new chat
	esc               back out of the current area
*/
package chat
