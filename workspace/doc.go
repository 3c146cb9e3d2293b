// Package workspace saves and restores the module graph as a JSON document.
//
// A document lists every module window followed by every edge:
//
//	{
//	    "windows": [{"module": "basic_ui.hello_world", "class_name": "Hello world",
//	                 "uuid": "...", "pos": [10, 10], "size": [-1, -1], "visible": true,
//	                 "params": {"label": "Hello world"}}],
//	    "connections": [{"from": "...", "output": "Text", "to": "..."}]
//	}
//
// A list-valued "to" is the legacy form; each listed target is connected from
// the source's first declared output. A window whose params carry
// "merged_into" is merged into that module once every window exists.
//
// Import order is fixed: modules, then merges, then connections, since both
// merges and connections refer to other modules by id.
package workspace
