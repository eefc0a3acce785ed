// inferctl is the operator CLI for a running inferd daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inferd/pkg/types"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var serverURL string
	var modelID string

	root := &cobra.Command{
		Use:           "inferctl",
		Short:         "Operate a running inferd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("INFERD_URL", "http://127.0.0.1:8080"), "Base URL of the inferd daemon")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog models and their states",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.ModelsResponse
			if err := newClient(serverURL).get("/models", &resp); err != nil {
				return err
			}
			for _, st := range resp.Models {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\trefs=%d\n",
					st.Descriptor.ID, st.Descriptor.Kind, st.Descriptor.Format, st.State, st.RefCount)
			}
			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show one model",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st types.ModelStatus
			if err := newClient(serverURL).get("/models/"+modelID, &st); err != nil {
				return err
			}
			d := st.Descriptor
			fmt.Fprintf(cmd.OutOrStdout(), "id:     %s\nname:   %s\nkind:   %s\nformat: %s\nstate:  %s\nrefs:   %d\n",
				d.ID, d.Name, d.Kind, d.Format, st.State, st.RefCount)
			if d.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "desc:   %s\n", d.Description)
			}
			return nil
		},
	}
	infoCmd.Flags().StringVar(&modelID, "model-id", "", "Model id")
	_ = infoCmd.MarkFlagRequired("model-id")

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load a model (takes one reference)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.LoadResponse
			if err := newClient(serverURL).post("/models/"+modelID+"/load", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s refs=%d\n", resp.ModelID, resp.State, resp.RefCount)
			return nil
		},
	}
	loadCmd.Flags().StringVar(&modelID, "model-id", "", "Model id")
	_ = loadCmd.MarkFlagRequired("model-id")

	unloadCmd := &cobra.Command{
		Use:   "unload",
		Short: "Drop one reference on a model",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.LoadResponse
			if err := newClient(serverURL).post("/models/"+modelID+"/unload", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s refs=%d\n", resp.ModelID, resp.State, resp.RefCount)
			return nil
		},
	}
	unloadCmd.Flags().StringVar(&modelID, "model-id", "", "Model id")
	_ = unloadCmd.MarkFlagRequired("model-id")

	warmupCmd := &cobra.Command{
		Use:   "warmup",
		Short: "Start a background load and return immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.OpResponse
			if err := newClient(serverURL).post("/models/"+modelID+"/warmup", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.OpID)
			return nil
		},
	}
	warmupCmd.Flags().StringVar(&modelID, "model-id", "", "Model id")
	_ = warmupCmd.MarkFlagRequired("model-id")

	var runInput string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one inference call (cached-or-compute)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res types.InferResult
			req := types.RunRequest{Model: modelID, Input: runInput}
			if err := newClient(serverURL).post("/run", req, &res); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			if res.Cached {
				fmt.Fprintln(cmd.ErrOrStderr(), "(cached)")
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&modelID, "model-id", "", "Model id")
	runCmd.Flags().StringVar(&runInput, "input", "", "Input text")
	_ = runCmd.MarkFlagRequired("model-id")
	_ = runCmd.MarkFlagRequired("input")

	root.AddCommand(listCmd, infoCmd, loadCmd, unloadCmd, warmupCmd, runCmd)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inferctl:", err)
		return exitCodeFor(err)
	}
	return exitOK
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
