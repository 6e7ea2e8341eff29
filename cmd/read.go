package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"comet/internal/comic"
	"comet/internal/history"
	"comet/internal/reader"
	"comet/internal/worker"
)

var (
	readPassword string
	readPage     int
	readPageMode string
	readDPI      int
	readOutDir   string
)

var readCmd = &cobra.Command{
	Use:   "read [flags] <path>",
	Short: "Open a document and extract the displayed page(s)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		mode, err := parsePageMode(readPageMode)
		if err != nil {
			return err
		}

		fs := afero.NewOsFs()
		if err := fs.MkdirAll(configDir(), 0755); err != nil {
			return err
		}
		settings := history.LoadSettings(fs, settingsPath())
		if readDPI > 0 {
			settings.PDFReadingDPI = readDPI
		}
		settings.DefaultPageMode = int(mode)
		store := history.NewStore(fs, historyPath(), settings.MaxRecentFiles)

		presenter := newConsolePresenter()
		ctrl := reader.New(reader.Config{
			Fs:        fs,
			Presenter: presenter,
			History:   store,
			Settings:  settings,
		})
		defer ctrl.Close()

		initial := readPage
		if !cmd.Flags().Changed("page") {
			initial = reader.PageFromHistory
		}
		ctrl.Open(path, reader.OpenOptions{Password: readPassword, InitialPage: initial})

		return runReadLoop(ctrl, presenter)
	},
}

func runReadLoop(ctrl *reader.Controller, presenter *consolePresenter) error {
	stdin := bufio.NewReader(os.Stdin)
	timeout := time.After(2 * time.Minute)

	for {
		select {
		case page := <-presenter.pages:
			return writePages(ctrl, page)
		case cmd := <-presenter.ebook:
			fmt.Printf("e-book document; viewer would render at %d%%\n", cmd.Percent)
			return nil
		case info := <-presenter.infos:
			printPageInfo(info)
		case prompt := <-presenter.passwords:
			if prompt.Retry {
				fmt.Fprintf(os.Stderr, "wrong password for %s\n", prompt.Path)
			}
			fmt.Fprint(os.Stderr, "password: ")
			line, err := stdin.ReadString('\n')
			if err != nil {
				ctrl.PasswordCanceled()
				return fmt.Errorf("password entry aborted")
			}
			ctrl.PasswordEntered(strings.TrimRight(line, "\r\n"))
		case prompt := <-presenter.bookTypes:
			fmt.Fprintf(os.Stderr, "open %s as [c]omic or [e]-book? ", filepath.Base(prompt.Path))
			line, _ := stdin.ReadString('\n')
			kind := comic.KindEpubComic
			if strings.HasPrefix(strings.TrimSpace(strings.ToLower(line)), "e") {
				kind = comic.KindEpubEbook
			}
			ctrl.BookTypeEntered(prompt.Path, kind)
		case msg := <-presenter.messages:
			return fmt.Errorf("%s: %s", msg.Title, msg.Text)
		case <-timeout:
			return fmt.Errorf("timed out waiting for the document")
		}
	}
}

func writePages(ctrl *reader.Controller, page comic.RenderPage) error {
	session := ctrl.Session()
	if err := os.MkdirAll(readOutDir, 0755); err != nil {
		return err
	}
	for i, data := range page.Images {
		if page.RotationDegrees != 0 {
			rotated, err := worker.Rotate(data, page.RotationDegrees)
			if err != nil {
				return err
			}
			data = rotated
		}
		name := fmt.Sprintf("%s-p%03d%s", strings.TrimSuffix(session.DisplayName, filepath.Ext(session.DisplayName)),
			session.CurrentPageIndex+i+1, extForMIME(page.MIME, page.RotationDegrees))
		out := filepath.Join(readOutDir, name)
		if err := os.WriteFile(out, data, 0644); err != nil {
			return err
		}
		fmt.Println(out)
	}
	for _, url := range page.ImageURLs {
		fmt.Println(url)
	}
	return nil
}

func extForMIME(mime string, rotation int) string {
	if rotation != 0 {
		// Rotation re-encodes to PNG.
		return ".png"
	}
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func printPageInfo(info comic.PageInfo) {
	if info.IsPercent {
		fmt.Fprintf(os.Stderr, "at %d%%\n", info.Index)
		return
	}
	fmt.Fprintf(os.Stderr, "page %d of %d\n", info.Index+1, info.Total)
}

func parsePageMode(s string) (comic.PageMode, error) {
	switch s {
	case "single":
		return comic.PageModeSingle, nil
	case "double":
		return comic.PageModeDouble, nil
	case "center":
		return comic.PageModeDoubleCenterFirst, nil
	default:
		return 0, fmt.Errorf("unknown page mode %q (single, double, center)", s)
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".comet"
	}
	return filepath.Join(home, ".comet")
}

func settingsPath() string {
	return filepath.Join(configDir(), "settings.json")
}

func historyPath() string {
	return filepath.Join(configDir(), "history.json")
}

func init() {
	readCmd.Flags().StringVar(&readPassword, "password", "", "archive/PDF password")
	readCmd.Flags().IntVar(&readPage, "page", 0, "page index to display (0-based)")
	readCmd.Flags().StringVar(&readPageMode, "page-mode", "single", "page layout: single, double, center")
	readCmd.Flags().IntVar(&readDPI, "dpi", 0, "PDF rendering DPI")
	readCmd.Flags().StringVar(&readOutDir, "out", ".", "directory for extracted page images")
	rootCmd.AddCommand(readCmd)
}
