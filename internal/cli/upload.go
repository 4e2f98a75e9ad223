package cli

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// videoTypes covers common containers missing from Go's builtin MIME table
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".3gp":  "video/3gpp",
}

func newUploadCmd() *cobra.Command {
	var testType, contentType string

	cmd := &cobra.Command{
		Use:   "upload <video>",
		Short: "Upload a video for evaluation",
		Long: `Upload a video and print the evaluation result.

The command waits until the server has finished evaluating the video,
which can take several minutes. Use --upload-timeout to bound the wait.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if testType == "" {
				return errors.New("--test is required")
			}
			if client == nil || cfg.Token == "" {
				return errors.New("not logged in: run 'fitctl login' or pass --token")
			}

			path := args[0]
			ct := contentType
			if ct == "" {
				ct = detectContentType(path)
			}
			if cfg.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %s as %s (test %s)\n", path, ct, testType)
			}

			result, err := client.Upload(cmd.Context(), path, testType, ct)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(Evaluation(result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&testType, "test", "t", "", "Test type, e.g. squats, pushups, jumps, hexagon (required)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Video content type (detected from the extension if omitted)")
	cmd.Flags().DurationVar(&cfg.UploadTimeout, "upload-timeout", cfg.UploadTimeout, "Maximum time to wait for the upload and evaluation (0 for no limit)")
	_ = cmd.MarkFlagRequired("test")

	return cmd
}

// detectContentType guesses a video type from the file extension.
// Unknown extensions are sent as application/octet-stream and rejected by the server.
func detectContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := videoTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
