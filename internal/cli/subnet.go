package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/icnetwork/decentralization/internal/changeengine"
	"github.com/icnetwork/decentralization/internal/domain"
	"github.com/icnetwork/decentralization/internal/nakamoto"
	"github.com/icnetwork/decentralization/internal/rules"
)

func init() {
	rootCmd.AddCommand(subnetCmd)
	subnetCmd.AddCommand(subnetScoreCmd)
	subnetCmd.AddCommand(subnetCheckCmd)
	subnetCmd.AddCommand(subnetExtendCmd)
	subnetCmd.AddCommand(subnetOptimizeCmd)
	subnetCmd.AddCommand(subnetReplaceCmd)

	subnetCheckCmd.Flags().StringSlice("min", nil, "minimum coefficient floor, feature=value (repeatable)")

	subnetExtendCmd.Flags().String("pool", "", "path to a JSON array of candidate nodes")
	subnetExtendCmd.Flags().Int("k", 1, "number of nodes to add")
	subnetExtendCmd.MarkFlagRequired("pool")

	subnetOptimizeCmd.Flags().String("pool", "", "path to a JSON array of candidate nodes")
	subnetOptimizeCmd.Flags().Int("budget", 1, "maximum number of remove/add steps")
	subnetOptimizeCmd.Flags().StringSlice("pin", nil, "node id that must remain in the subnet (repeatable)")
	subnetOptimizeCmd.Flags().StringSlice("exclude", nil, "candidate node id that may never be added (repeatable)")
	subnetOptimizeCmd.Flags().StringSlice("min", nil, "minimum coefficient floor, feature=value (repeatable)")
	subnetOptimizeCmd.MarkFlagRequired("pool")

	subnetReplaceCmd.Flags().String("pool", "", "path to a JSON array of candidate nodes")
	subnetReplaceCmd.Flags().StringSlice("victim", nil, "node id to remove (repeatable)")
	subnetReplaceCmd.Flags().Bool("heal", false, "also remove caller-flagged unhealthy nodes")
	subnetReplaceCmd.Flags().StringSlice("unhealthy", nil, "node id flagged unhealthy, consulted only with --heal (repeatable)")
	subnetReplaceCmd.Flags().StringSlice("pin", nil, "node id that must never be removed (repeatable)")
	subnetReplaceCmd.MarkFlagRequired("pool")
}

var subnetCmd = &cobra.Command{
	Use:   "subnet",
	Short: "Inspect and rebalance a subnet's decentralization",
}

var subnetScoreCmd = &cobra.Command{
	Use:   "score SUBNET_FILE",
	Short: "Compute the Nakamoto score of a subnet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subnet, err := loadSubnet(args[0])
		if err != nil {
			return err
		}
		score := nakamoto.NewScore(subnet.FeatureSlice())
		fmt.Fprintf(os.Stderr, "scored %s nodes\n", humanize.Comma(int64(len(subnet.Nodes))))
		return printJSON(score)
	},
}

var subnetCheckCmd = &cobra.Command{
	Use:   "check SUBNET_FILE",
	Short: "Validate a subnet against the business rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subnet, err := loadSubnet(args[0])
		if err != nil {
			return err
		}
		minFlags, _ := cmd.Flags().GetStringSlice("min")
		min, err := parseMinCoefficients(minFlags)
		if err != nil {
			return err
		}
		res := rules.Check(subnet, min)
		if err := printJSON(res); err != nil {
			return err
		}
		if !res.OK() {
			fmt.Fprintln(os.Stderr, res.Violation.Error())
			os.Exit(1)
		}
		return nil
	},
}

var subnetExtendCmd = &cobra.Command{
	Use:   "extend SUBNET_FILE",
	Short: "Greedily add k nodes from a candidate pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subnet, err := loadSubnet(args[0])
		if err != nil {
			return err
		}
		poolPath, _ := cmd.Flags().GetString("pool")
		pool, err := loadPool(poolPath)
		if err != nil {
			return err
		}
		k, _ := cmd.Flags().GetInt("k")

		change, err := changeengine.Extend(subnet, k, pool)
		if err != nil {
			return err
		}
		return printJSON(change)
	},
}

var subnetOptimizeCmd = &cobra.Command{
	Use:   "optimize SUBNET_FILE",
	Short: "Search for a membership change that improves decentralization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subnet, err := loadSubnet(args[0])
		if err != nil {
			return err
		}
		poolPath, _ := cmd.Flags().GetString("pool")
		pool, err := loadPool(poolPath)
		if err != nil {
			return err
		}
		budget, _ := cmd.Flags().GetInt("budget")
		pins, _ := cmd.Flags().GetStringSlice("pin")
		exclusions, _ := cmd.Flags().GetStringSlice("exclude")
		minFlags, _ := cmd.Flags().GetStringSlice("min")
		min, err := parseMinCoefficients(minFlags)
		if err != nil {
			return err
		}

		res, err := changeengine.Optimize(changeengine.OptimizeRequest{
			Subnet:          subnet,
			Budget:          budget,
			Pool:            pool,
			Pins:            toNodeIDs(pins),
			Exclusions:      toNodeIDs(exclusions),
			MinCoefficients: min,
		})
		if err != nil {
			return err
		}
		if err := printJSON(res); err != nil {
			return err
		}
		if res.Violation != nil {
			fmt.Fprintln(os.Stderr, res.Violation.Error())
			os.Exit(1)
		}
		return nil
	},
}

var subnetReplaceCmd = &cobra.Command{
	Use:   "replace SUBNET_FILE",
	Short: "Remove victim/unhealthy nodes and extend by the same count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subnet, err := loadSubnet(args[0])
		if err != nil {
			return err
		}
		poolPath, _ := cmd.Flags().GetString("pool")
		pool, err := loadPool(poolPath)
		if err != nil {
			return err
		}
		victims, _ := cmd.Flags().GetStringSlice("victim")
		heal, _ := cmd.Flags().GetBool("heal")
		unhealthy, _ := cmd.Flags().GetStringSlice("unhealthy")
		pins, _ := cmd.Flags().GetStringSlice("pin")

		change, err := changeengine.Replace(changeengine.ReplaceRequest{
			Subnet:       subnet,
			VictimIDs:    toNodeIDs(victims),
			Heal:         heal,
			UnhealthyIDs: toNodeIDs(unhealthy),
			Pins:         toNodeIDs(pins),
			Pool:         pool,
		})
		if err != nil {
			return err
		}
		return printJSON(change)
	},
}

func loadSubnet(path string) (domain.Subnet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Subnet{}, fmt.Errorf("read subnet file %s: %w", path, err)
	}
	var subnet domain.Subnet
	if err := json.Unmarshal(data, &subnet); err != nil {
		return domain.Subnet{}, fmt.Errorf("parse subnet file %s: %w", path, err)
	}
	return subnet, nil
}

func loadPool(path string) ([]domain.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool file %s: %w", path, err)
	}
	var pool []domain.Node
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("parse pool file %s: %w", path, err)
	}
	return pool, nil
}

func toNodeIDs(ss []string) []domain.NodeID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]domain.NodeID, len(ss))
	for i, s := range ss {
		out[i] = domain.NodeID(s)
	}
	return out
}

// parseMinCoefficients parses "feature=value" flags into the per-feature
// floor map. A nil/empty slice yields a nil *rules.MinCoefficients, meaning
// "no floor requested".
func parseMinCoefficients(flags []string) (*rules.MinCoefficients, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	coeffs := make(map[domain.Feature]float64, len(flags))
	for _, flag := range flags {
		name, value, ok := splitOnce(flag, '=')
		if !ok {
			return nil, fmt.Errorf("invalid --min %q: want feature=value", flag)
		}
		feature, err := domain.ParseFeature(name)
		if err != nil {
			return nil, err
		}
		var f float64
		if _, err := fmt.Sscanf(value, "%g", &f); err != nil {
			return nil, fmt.Errorf("invalid --min %q: %w", flag, err)
		}
		coeffs[feature] = f
	}
	return &rules.MinCoefficients{Coefficients: coeffs}, nil
}

func splitOnce(s string, sep byte) (before, after string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
