package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"archgate/internal/access"
	"archgate/internal/access/models"
	id "archgate/pkg/domain"
	audit "archgate/pkg/platform/audit"
	"archgate/pkg/requestcontext"
)

type checkOptions struct {
	objectID string
	userID   int64
	action   string
	asOf     string
	explain  bool
}

type checkOutput struct {
	ObjectID       int64                 `json:"object_id"`
	UserID         int64                 `json:"user_id"`
	Action         string                `json:"action"`
	AsOf           string                `json:"as_of"`
	Decision       models.AccessDecision `json:"decision"`
	ClearanceLevel string                `json:"clearance_level"`
	Requirement    string                `json:"requirement,omitempty"`
	Unavailable    []string              `json:"unavailable,omitempty"`
	Integrity      []string              `json:"integrity,omitempty"`
}

func newCheckCommand() *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate one access check and print the decision as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), newRuntimeEnv(cfg), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.objectID, "object", "", "object id to check")
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "user id; 0 checks as anonymous")
	cmd.Flags().StringVar(&opts.action, "action", string(audit.ActionView), "view, download, badge or bulk_scan")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "evaluation date (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "include unavailable sources and integrity faults")
	_ = cmd.MarkFlagRequired("object")
	return cmd
}

func runCheck(ctx context.Context, env runtimeEnv, opts checkOptions, out io.Writer) error {
	action, ok := audit.ParseAction(opts.action)
	if !ok {
		return fmt.Errorf("unknown action %q", opts.action)
	}
	loc, err := env.cfg.Access.Location()
	if err != nil {
		return err
	}
	asOf := time.Now().In(loc)
	if opts.asOf != "" {
		if asOf, err = time.ParseInLocation(time.DateOnly, opts.asOf, loc); err != nil {
			return fmt.Errorf("parse --as-of: %w", err)
		}
	}
	ctx = requestcontext.WithTime(ctx, asOf)

	// Malformed ids are still evaluated so the attempt lands in the audit log.
	objectID, parseErr := id.ParseObjectID(opts.objectID)

	rt, err := buildRuntime(ctx, env.cfg, env.logger)
	if err != nil {
		return err
	}
	defer rt.close(context.WithoutCancel(ctx))

	uc := rt.service.UserContext(ctx, id.UserID(opts.userID))
	decision := rt.service.Check(ctx, access.Request{ObjectID: objectID, User: uc, Action: action})
	if parseErr != nil {
		return parseErr
	}

	result := checkOutput{
		ObjectID:       int64(objectID),
		UserID:         opts.userID,
		Action:         string(action),
		AsOf:           asOf.Format(time.DateOnly),
		Decision:       decision,
		ClearanceLevel: uc.ClearanceLevel.String(),
	}
	if opts.explain {
		eval := rt.service.Evaluate(ctx, objectID, uc)
		result.Requirement = eval.Requirement.String()
		for _, kind := range eval.Unavailable {
			result.Unavailable = append(result.Unavailable, string(kind))
		}
		for _, fault := range eval.Integrity {
			result.Integrity = append(result.Integrity, string(fault.Kind)+": "+fault.Detail)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
