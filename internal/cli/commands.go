package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zpass/internal/credential"
	"github.com/zarlcorp/zpass/internal/generator"
	"github.com/zarlcorp/zpass/internal/qr"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.Stdout, "zpass %s\n", a.Version)
		},
	}
}

func (a *app) generateCmd() *cobra.Command {
	var (
		length                               int
		noUpper, noLower, noDigits, noSymbol bool
		service                              string
		copyOut, showQR                      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a random password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := generator.Policy{
				Length:  length,
				Upper:   !noUpper,
				Lower:   !noLower,
				Digits:  !noDigits,
				Symbols: !noSymbol,
			}

			pw, err := a.Gen.Generate(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.Stdout, pw)

			if showQR {
				s, err := qr.Terminal(pw)
				if err != nil {
					return err
				}
				fmt.Fprint(a.Stdout, s)
			}

			if copyOut {
				if err := a.Clipboard(pw); err != nil {
					return fmt.Errorf("copy: %w", err)
				}
				fmt.Fprintln(a.Stderr, "copied")
			}

			if service == "" {
				return nil
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Save(cmd.Context(), service, pw); err != nil {
				return err
			}
			fmt.Fprintf(a.Stderr, "saved %s\n", service)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&length, "length", "l", a.Config.Policy().Length,
		fmt.Sprintf("password length (%d-%d)", generator.MinLength, generator.MaxLength))
	f.BoolVar(&noUpper, "no-upper", false, "exclude uppercase letters")
	f.BoolVar(&noLower, "no-lower", false, "exclude lowercase letters")
	f.BoolVar(&noDigits, "no-digits", false, "exclude digits")
	f.BoolVar(&noSymbol, "no-symbols", false, "exclude symbols")
	f.StringVar(&service, "save", "", "save the password under this service name")
	f.BoolVar(&copyOut, "copy", false, "copy the password to the clipboard")
	f.BoolVar(&showQR, "qr", false, "print the password as a QR code")

	return cmd
}

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save SERVICE [PASSWORD]",
		Short: "store a password; generates one when PASSWORD is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := args[0]

			var pw string
			if len(args) == 2 {
				pw = args[1]
			} else {
				var err error
				if pw, err = a.Gen.Generate(a.Config.Policy()); err != nil {
					return err
				}
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.Save(cmd.Context(), service, pw); err != nil {
				return err
			}

			if len(args) == 1 {
				fmt.Fprintln(a.Stdout, pw)
			}
			fmt.Fprintf(a.Stderr, "saved %s\n", service)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list stored passwords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.List(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				if recs == nil {
					recs = []credential.Record{}
				}
				return a.printJSON(recs)
			}

			if len(recs) == 0 {
				fmt.Fprintln(a.Stdout, "no passwords stored")
				return nil
			}

			for _, r := range recs {
				fmt.Fprintf(a.Stdout, "  %-24s %-32s %s\n",
					r.Service,
					r.Password,
					r.CreatedAt.Local().Format(time.DateTime),
				)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var copyOut bool

	cmd := &cobra.Command{
		Use:   "show SERVICE",
		Short: "show the stored password for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprint(a.Stdout, rec.Text())

			if copyOut {
				if err := a.Clipboard(rec.Password); err != nil {
					return fmt.Errorf("copy: %w", err)
				}
				fmt.Fprintln(a.Stderr, "copied")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyOut, "copy", false, "copy the password to the clipboard")
	return cmd
}

func (a *app) qrCmd() *cobra.Command {
	var (
		pngPath string
		size    int
	)

	cmd := &cobra.Command{
		Use:   "qr SERVICE",
		Short: "render the stored password for a service as a QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if pngPath == "" {
				out, err := qr.Terminal(rec.Password)
				if err != nil {
					return err
				}
				fmt.Fprint(a.Stdout, out)
				return nil
			}

			abs, err := filepath.Abs(pngPath)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", pngPath, err)
			}
			fsys := zfilesystem.NewOSFileSystem(filepath.Dir(abs))
			if err := qr.WritePNG(fsys, filepath.Base(abs), rec.Password, size); err != nil {
				return err
			}
			fmt.Fprintf(a.Stderr, "wrote %s\n", abs)
			return nil
		},
	}

	cmd.Flags().StringVar(&pngPath, "png", "", "write a PNG image to this file instead of printing")
	cmd.Flags().IntVar(&size, "size", a.Config.QRSize, "PNG edge length in pixels")
	return cmd
}

func (a *app) forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget SERVICE",
		Short: "delete the stored password for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.Stdout, "deleted %s\n", args[0])
			return nil
		},
	}
}
