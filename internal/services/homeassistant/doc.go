// Package homeassistant synthesizes draft audio through a Home Assistant TTS
// entity.
//
// Synthesis is two requests: POST /api/tts_get_url asks Home Assistant to
// render the text and returns a proxy URL, then the audio is downloaded from
// that URL into the audio directory. There is a single attempt per call; any
// failure is reported as a services.SynthesisError.
package homeassistant
