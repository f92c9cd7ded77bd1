// Package config loads, normalizes, and validates IntoHear configuration.
//
// Configuration lives in TOML (~/.config/intohear/config.toml or
// ./intohear.toml) and is layered over Default(). Environment variables
// (INTOHEAR_MODEL, INTOHEAR_ENGINE, INTOHEAR_LANGUAGE, INTOHEAR_TEMP_DIR,
// INTOHEAR_MODEL_DIR, HF_TOKEN) override file values. Unknown model names fall
// back to the default model instead of failing validation.
package config
