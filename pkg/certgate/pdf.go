package certgate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ImageToPdf wraps a rendered certificate image into a single-page PDF sized
// to the image.
func ImageToPdf(imagePath, outputPath string) error {
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("image file not found: %w", err)
	}

	if err := api.ImportImagesFile([]string{imagePath}, outputPath, nil, nil); err != nil {
		return fmt.Errorf("failed to convert image to PDF: %w", err)
	}

	return nil
}

// ImageBytesToPdf is the in-memory variant: the image bytes are staged in a
// temp file for pdfcpu and the resulting PDF bytes returned.
func ImageBytesToPdf(imageData []byte, tmpDir string) ([]byte, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	tmpImg, err := os.CreateTemp(tmpDir, "certgate_img_*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary image file: %w", err)
	}
	defer os.Remove(tmpImg.Name())

	if _, err := tmpImg.Write(imageData); err != nil {
		tmpImg.Close()
		return nil, fmt.Errorf("failed to write temporary image file: %w", err)
	}
	tmpImg.Close()

	outputPath := filepath.Join(tmpDir, filepath.Base(tmpImg.Name())+".pdf")
	defer os.Remove(outputPath)

	if err := ImageToPdf(tmpImg.Name(), outputPath); err != nil {
		return nil, err
	}

	return os.ReadFile(outputPath)
}
