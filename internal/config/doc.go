// Package config loads, normalizes, and validates draftbot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file next to the config, and
// honours the environment variables the original scripts used
// (DISCORD_BOT_TOKEN, HOME_ASSISTANT_URL, DRAFTS_FOLDER, ...). The Config type
// centralizes every knob the daemon and CLI need so folder paths and external
// service credentials are discovered in one pass.
//
// Configuration is consumed at startup; there is no runtime reload.
package config
