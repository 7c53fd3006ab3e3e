// Package config holds the processing configuration for the OMR pipeline.
//
// A Config arrives as an optional JSON document from the caller. Parse
// starts from Default and overlays only the keys the document provides, so
// a partial config never zeroes a tuning parameter. The resulting value is
// validated once and treated as immutable: the pipeline shares one Config
// across concurrent image workers without locking.
//
// The JSON vocabulary matches the classic OMR config file:
//
//	{
//	  "dimensions":       {"processing_width": 1240, "processing_height": 1754},
//	  "threshold_params":  {"MIN_JUMP": 10, "GLOBAL_THRESHOLD_WHITE": 200, "GLOBAL_THRESHOLD_BLACK": 100},
//	  "outputs":           {"show_image_level": 0}
//	}
package config
