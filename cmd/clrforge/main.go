// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saferwall/clrforge"
	"github.com/saferwall/clrforge/log"
)

var (
	verbose      bool
	searchPaths  []string
	runtimeRoot  string
	outputPath   string
	addTypeSpec  string
	renameSpec   string
)

func prettyPrint(v any) string {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(buf)
}

func newLogger() *log.Helper {
	level := log.LevelInfo
	if verbose {
		level = log.LevelDebug
	}
	return log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(level)))
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Load an assembly and print its Loader summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := clrforge.NewLoader(newLogger())
			asm, err := loader.Load(args[0], &clrforge.Options{})
			if err != nil {
				return err
			}
			fmt.Println(prettyPrint(asm.Summary()))
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a symbolic assembly reference name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := clrforge.NewResolver(searchPaths, runtimeRoot, newLogger())
			asm, ok := resolver.Resolve(args[0])
			stats := resolver.Stats()
			if !ok {
				fmt.Printf("not found: %s (success rate so far: %.2f)\n", args[0], stats.SuccessRate())
				return nil
			}
			fmt.Println(prettyPrint(asm.Summary()))
			fmt.Println(prettyPrint(stats))
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <path-a> <path-b>",
		Short: "Structurally diff two assemblies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := clrforge.NewLoader(newLogger())
			a, err := loader.Load(args[0], &clrforge.Options{})
			if err != nil {
				return err
			}
			b, err := loader.Load(args[1], &clrforge.Options{})
			if err != nil {
				return err
			}
			fmt.Println(prettyPrint(clrforge.DiffAssemblies(a, b)))
			return nil
		},
	}
}

// parseAddType parses "Namespace.Name" into (namespace, name).
func parseAddType(spec string) (namespace, name string) {
	i := strings.LastIndex(spec, ".")
	if i < 0 {
		return "", spec
	}
	return spec[:i], spec[i+1:]
}

func newRewriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite <path>",
		Short: "Apply a small set of mutations and save the result",
		Long: "Applies the mutations named by --add-type and --rename-method (any " +
			"combination, in that order) to the loaded assembly, then writes the " +
			"result to --out (or back to <path> if --out is empty).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			loader := clrforge.NewLoader(logger)
			asm, err := loader.Load(args[0], &clrforge.Options{})
			if err != nil {
				return err
			}
			rw := clrforge.NewRewriter(asm, logger)

			if addTypeSpec != "" {
				ns, name := parseAddType(addTypeSpec)
				factory := clrforge.NewTypeFactory()
				id := rw.AddType(*factory.NewClass(ns, name))
				logger.Infof("added type %s", id.Encode())
			}

			if renameSpec != "" {
				parts := strings.SplitN(renameSpec, "=", 2)
				if len(parts) != 2 {
					return clrforge.NewError(clrforge.CodeInvalidParameter, "rename-method must be member-id=newName")
				}
				id, err := clrforge.DecodeMemberID(parts[0])
				if err != nil {
					return err
				}
				idx, found := methodIndexForToken(asm, id.Token)
				if !found {
					return clrforge.NewError(clrforge.CodeMethodNotFound, "no method with that token in the loaded assembly")
				}
				if err := rw.RenameMethod(idx, parts[1]); err != nil {
					return err
				}
			}

			for _, finding := range rw.Verify() {
				logger.Warnf("verify: %s", finding)
			}

			dest := outputPath
			if dest == "" {
				dest = args[0]
			}
			if err := rw.Save(dest); err != nil {
				return err
			}
			fmt.Println(prettyPrint(rw.History()))
			return nil
		},
	}
	cmd.Flags().StringVar(&addTypeSpec, "add-type", "", "add a public class, as Namespace.Name")
	cmd.Flags().StringVar(&renameSpec, "rename-method", "", "rename a method, as member-id=newName")
	cmd.Flags().StringVar(&outputPath, "out", "", "output path (defaults to overwriting the input)")
	return cmd
}

func methodIndexForToken(asm *clrforge.Assembly, token uint32) (int, bool) {
	for i := range asm.Methods {
		if asm.Methods[i].Token == token {
			return i, true
		}
	}
	return 0, false
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clrforge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("clrforge 0.1.0")
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:   "clrforge",
		Short: "An in-memory PE/CLI assembly model and rewriter",
		Long:  "Loads, inspects, resolves, diffs, and rewrites PE/CLI (.NET-style managed) assemblies.",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().StringArrayVar(&searchPaths, "search-path", nil, "additional resolver search directory (repeatable)")
	root.PersistentFlags().StringVar(&runtimeRoot, "runtime-root", "", "override the runtime's shared-framework root directory")

	root.AddCommand(newInspectCmd(), newResolveCmd(), newDiffCmd(), newRewriteCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
