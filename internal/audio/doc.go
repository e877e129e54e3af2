// Package audio generates playlists over downloaded samples.
//
// # Playlist Generation
//
// Generate playlists in various formats:
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist("spatial-librispeech", samples)
//	os.WriteFile("spatial-librispeech.m3u", []byte(content), 0644)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
//
// Audio content itself is never touched: samples stay byte-identical to
// what the server returned.
package audio
