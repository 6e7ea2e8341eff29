package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"comet/internal/comic"
	"comet/internal/inspect"
	"comet/internal/worker"
)

var infoPassword string

var infoCmd = &cobra.Command{
	Use:   "info [flags] <path>",
	Short: "List the page entries of a document without extracting them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		fs := afero.NewOsFs()
		info, err := fs.Stat(path)
		if err != nil {
			return err
		}

		kind, _ := comic.KindForPath(path)
		if info.IsDir() {
			kind = comic.KindImageFolder
		}

		var res inspect.Result
		switch kind {
		case comic.KindZip:
			res = inspect.ListZip(path, infoPassword)
		case comic.KindRar:
			res = inspect.ListRar(path, infoPassword)
		case comic.Kind7z:
			res = inspect.List7z(path, infoPassword)
		case comic.KindEpubComic:
			res = inspect.ListEpubImages(path)
		case comic.KindImageFolder:
			res = inspect.ListImageFolder(fs, path)
		case comic.KindPDF:
			return pdfInfo(path)
		default:
			return fmt.Errorf("unsupported file type: %s", path)
		}

		switch res.Outcome {
		case inspect.OutcomePasswordRequired:
			return fmt.Errorf("%s is password protected (use --password)", path)
		case inspect.OutcomeError:
			return res.Err
		}

		fmt.Printf("%s: %s, %d pages\n", filepath.Base(path), kind, len(res.Entries))
		for i, entry := range res.Entries {
			fmt.Printf("%4d  %s\n", i+1, entry)
		}
		return nil
	},
}

// pdfInfo goes through the worker so the PDF open path (validation, page
// count, password detection) is the same one the reader uses.
func pdfInfo(path string) error {
	responses := make(chan worker.Response, 1)
	w := worker.Start(worker.Config{}, func(resp worker.Response) {
		responses <- resp
	})
	defer w.Kill()

	w.Submit(worker.OpenRequest{Path: path, Password: infoPassword})
	select {
	case resp := <-responses:
		switch r := resp.(type) {
		case worker.OpenedResponse:
			fmt.Printf("%s: pdf, %d pages", filepath.Base(path), r.PageCount)
			if r.Meta.Encrypted {
				fmt.Print(" (encrypted)")
			}
			fmt.Println()
			return nil
		case worker.FailureResponse:
			if r.Reason == worker.FailurePassword {
				return fmt.Errorf("%s is password protected (use --password)", path)
			}
			return r.Err
		}
	case <-time.After(worker.DefaultTimeout):
	}
	return fmt.Errorf("timed out reading %s", path)
}

func init() {
	infoCmd.Flags().StringVar(&infoPassword, "password", "", "archive/PDF password")
	rootCmd.AddCommand(infoCmd)
}
