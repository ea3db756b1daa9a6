// Package config holds the two layers of configuration.
//
// Options is the user's policy: region strategy, open and copy behavior. It is
// read from a JSON file over DefaultOptions and served through a Store whose
// snapshots are swapped atomically, so a detection cycle always reads a
// consistent set of values for each stage.
//
// Settings is the process configuration, read from the environment (and a
// .env file when present):
//
//	BARCODE_MCP_OPTIONS           options JSON path
//	BARCODE_MCP_LOG_LEVEL         debug, info, warn, error
//	BARCODE_MCP_SURFACES          notify (default) or local
//	BARCODE_MCP_BADGE_CLEAR_MS    delay before a complete badge clears
//	BARCODE_MCP_QUEUE_DEPTH       pending detection cycles before triggers block
//	BARCODE_MCP_CACHE_SIZE        decoded data: URL rasters kept in memory
//	BARCODE_MCP_FETCH_TIMEOUT_MS  HTTP image fetch timeout, 0 for none
//	BARCODE_MCP_ALLOW_FILES       true to read file: URLs and paths (off)
package config
