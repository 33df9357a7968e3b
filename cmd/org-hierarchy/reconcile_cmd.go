package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/graph"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
	"github.com/iota-uz/orghierarchy/pkg/configuration"
	"github.com/iota-uz/orghierarchy/pkg/constants"
)

type reconcileOptions struct {
	file            string
	dryRun          bool
	skipUnresolved  bool
	selfLoopPolicy  string
	duplicatePolicy string
	marker          string
}

func newReconcileCmd(g *globalOptions) *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply an edited hierarchy graph (JSON {nodes, edges}) to the designation store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Graph JSON file (required, - for stdin)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the plan without writing")
	cmd.Flags().BoolVar(&opts.skipUnresolved, "skip-unresolved", false, "Skip edges whose placeholder endpoints cannot be resolved")
	cmd.Flags().StringVar(&opts.selfLoopPolicy, "self-loop", configuration.SelfLoopPolicyReject, "Self-loop policy: reject|apply")
	cmd.Flags().StringVar(&opts.duplicatePolicy, "duplicate-parent", configuration.DuplicateParentLastWins, "Duplicate parent policy: last-wins|reject")
	cmd.Flags().StringVar(&opts.marker, "placeholder-prefix", graph.DefaultPlaceholderPrefix, "Id prefix marking new nodes")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readGraph(cmd *cobra.Command, path string) (graph.Graph, error) {
	var raw []byte
	var err error
	if path == "-" {
		var buf bytes.Buffer
		_, err = buf.ReadFrom(cmd.InOrStdin())
		raw = buf.Bytes()
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return graph.Graph{}, withCode(exitUsage, fmt.Errorf("read %s: %w", path, err))
	}

	var g graph.Graph
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return graph.Graph{}, withCode(exitValidation, fmt.Errorf("decode %s: %w", path, err))
	}
	if err := constants.Validate.Struct(g); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return graph.Graph{}, withCode(exitValidation, fmt.Errorf("invalid graph %s: %w", path, verrs))
		}
		return graph.Graph{}, withCode(exitValidation, err)
	}
	return g, nil
}

func (o reconcileOptions) hierarchyOptions(g *globalOptions) (configuration.HierarchyOptions, error) {
	h := configuration.HierarchyOptions{
		PlaceholderPrefix:     o.marker,
		UnresolvedPolicy:      configuration.UnresolvedPolicyError,
		SelfLoopPolicy:        o.selfLoopPolicy,
		DuplicateParentPolicy: o.duplicatePolicy,
		SimilarNameThreshold:  2,
		DefaultTenantID:       g.tenant,
		CallTimeout:           g.timeout,
	}
	if o.skipUnresolved {
		h.UnresolvedPolicy = configuration.UnresolvedPolicySkip
	}
	if err := h.Validate(); err != nil {
		return h, withCode(exitUsage, err)
	}
	return h, nil
}

func runReconcile(cmd *cobra.Command, g *globalOptions, opts reconcileOptions) error {
	if strings.TrimSpace(opts.file) == "" {
		return withCode(exitUsage, fmt.Errorf("--file is required"))
	}
	h, err := opts.hierarchyOptions(g)
	if err != nil {
		return err
	}

	input, err := readGraph(cmd, opts.file)
	if err != nil {
		return err
	}

	authz := services.AllowAll()
	if opts.dryRun {
		authz = services.ReadOnly()
	}
	b, err := openBackend(cmd.Context(), g, authz)
	if err != nil {
		return err
	}
	defer b.Close()

	logEntry := logrus.NewEntry(b.logger).WithField("command", "reconcile")
	recOpts := services.ReconcilerOptionsFromConfig(h)
	recOpts.Logger = logEntry
	recOpts.Authorizer = authz
	recOpts.Notifier = services.NewLogNotifier(logEntry)
	reconciler := services.NewReconciler(b.store, recOpts)

	out := cmd.OutOrStdout()
	if opts.dryRun {
		plan, err := reconciler.DryRun(b.ctx, input)
		if err != nil {
			return withCode(reconcileExitCode(err), err)
		}
		return writeJSONLine(out, map[string]any{"dry_run": true, "plan": plan})
	}

	res, err := reconciler.Reconcile(b.ctx, input)
	if err != nil {
		return withCode(reconcileExitCode(err), err)
	}
	return writeJSONLine(out, map[string]any{"dry_run": false, "result": res})
}
