package audio

import (
	"fmt"
	"strings"

	"github.com/apple/ml-spatial-librispeech/internal/model"
)

// Generator is written into ZPL playlists.
const Generator = "SpatialLibriSpeechDownloader"

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines carrying the sample title.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	FormatZPL
)

// ParsePlaylistFormat converts a settings value (m3u, pls, wpl, zpl) into a
// PlaylistFormat. Matching is case-insensitive.
func ParsePlaylistFormat(name string) (PlaylistFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "m3u", "":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	case "wpl":
		return FormatWPL, nil
	case "zpl":
		return FormatZPL, nil
	default:
		return FormatM3U, fmt.Errorf("unknown playlist format %q", name)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f PlaylistFormat) Extension() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	case FormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// PlaylistCreator generates playlist files in various formats.
//
// The playlist is meant to live in the same directory as the samples, so
// entries are bare file names.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist("spatial-librispeech", samples)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,Sample 000042
//	// 000042.flac
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// extended only affects the M3U format.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// Format returns the format the creator writes.
func (p *PlaylistCreator) Format() PlaylistFormat {
	return p.format
}

// CreatePlaylist generates playlist content listing samples in order.
func (p *PlaylistCreator) CreatePlaylist(title string, samples []*model.Sample) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(samples)
	case FormatWPL:
		return p.createWPL(title, samples)
	case FormatZPL:
		return p.createZPL(title, samples)
	default:
		return p.createM3U(samples)
	}
}

// SampleTitle is the display title of a sample in playlists.
func SampleTitle(s *model.Sample) string {
	return "Sample " + strings.TrimSuffix(s.FileName, model.SampleExtension)
}

// createM3U generates an M3U playlist.
//
// Durations are unknown without decoding the audio, so EXTINF uses -1.
func (p *PlaylistCreator) createM3U(samples []*model.Sample) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, s := range samples {
		if p.extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:-1,%s\n", SampleTitle(s)))
		}
		sb.WriteString(s.FileName + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
//	[playlist]
//	File1=000042.flac
//	Title1=Sample 000042
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(samples []*model.Sample) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, s := range samples {
		idx := i + 1
		sb.WriteString(fmt.Sprintf("File%d=%s\n", idx, s.FileName))
		sb.WriteString(fmt.Sprintf("Title%d=%s\n", idx, SampleTitle(s)))
		sb.WriteString(fmt.Sprintf("Length%d=-1\n", idx))
	}

	sb.WriteString(fmt.Sprintf("NumberOfEntries=%d\n", len(samples)))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createWPL generates a Windows Media Player playlist.
func (p *PlaylistCreator) createWPL(title string, samples []*model.Sample) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(title)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, s := range samples {
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\"/>\n", escapeXML(s.FileName)))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL generates a Zune/Groove Music playlist.
//
// ZPL is WPL with extra metadata attributes per media entry.
func (p *PlaylistCreator) createZPL(title string, samples []*model.Sample) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(title)))
	sb.WriteString(fmt.Sprintf("    <meta name=\"Generator\" content=\"%s\"/>\n", Generator))
	sb.WriteString(fmt.Sprintf("    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(samples)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, s := range samples {
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\" albumTitle=\"%s\" trackTitle=\"%s\"/>\n",
			escapeXML(s.FileName),
			escapeXML(title),
			escapeXML(SampleTitle(s))))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// escapeXML escapes special XML characters in a string.
//
// Replaces: & < > " '
// With:     &amp; &lt; &gt; &quot; &apos;
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
