package certgate

type Config struct {
	// A path to json where it store font name and path to the font file
	FontMetadataPath string
	// Font family used when a field asks for a font that is not available.
	// Empty means "first font in the metadata file".
	DefaultFontName string
	// Secret mixed into QR verification hashes
	VerifySecret string
}
