package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nodeweave/spiderdb"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "spiderdb",
	Short: "CLI driver for a spiderdb associative memory store",
	Long:  `A command-line interface for inserting, querying, and maintaining a spiderdb instance.`,
}

func openDB() (*spiderdb.SpiderDB, error) {
	cfg := spiderdb.DefaultConfig(dbPath)
	return spiderdb.Open(cfg)
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Insert a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		vectorStr, _ := cmd.Flags().GetString("vector")
		significance, _ := cmd.Flags().GetInt("significance")
		autoLink, _ := cmd.Flags().GetFloat64("auto-link")
		autoLinkSet := cmd.Flags().Changed("auto-link")

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}

		var id uint64
		if autoLinkSet {
			id, err = db.AddNode([]byte(content), vector, significance, autoLink)
		} else {
			id, err = db.AddNode([]byte(content), vector, significance)
		}
		if err != nil {
			return err
		}
		if err := db.Save(""); err != nil {
			return err
		}
		fmt.Printf("added node %d\n", id)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a node's content, reinforcing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		content, err := db.GetNode(id)
		if err != nil {
			return err
		}
		if err := db.Save(""); err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a hybrid_search query",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		k, _ := cmd.Flags().GetInt("k")
		ef, _ := cmd.Flags().GetInt("ef")

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		results, err := db.HybridSearch(vector, k, ef)
		if err != nil {
			return err
		}
		if err := db.Save(""); err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%d\t%.4f\t%s\n", r.ID, r.Score, r.Content)
		}
		return nil
	},
}

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage graph edges",
}

var edgeAddCmd = &cobra.Command{
	Use:   "add <a> <b>",
	Short: "Add an edge between two node ids",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		b, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := db.AddEdge(a, b); err != nil {
			return err
		}
		return db.Save("")
	},
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Evict nodes below a life-score threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		db, err := openDB()
		if err != nil {
			return err
		}
		removed := db.Vacuum(threshold)
		if err := db.Save(""); err != nil {
			return err
		}
		fmt.Printf("removed %d nodes\n", len(removed))
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage clustering",
}

var clusterBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Recompute k-means clusters over live nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("k")
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := db.BuildClusters(k); err != nil {
			return err
		}
		return db.Save("")
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cluster stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		stats, ok := db.GetClusterStats()
		if !ok {
			fmt.Println("no clusters built yet")
			return nil
		}
		fmt.Printf("clusters=%d mean_size=%.2f mean_significance=%.2f\n",
			stats.NumClusters, stats.MeanClusterSize, stats.MeanSignificance)
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the semantic graph",
}

var graphDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump all live nodes and edges as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		nodes, edges := db.GetAllGraphData()
		out := struct {
			Nodes []spiderdb.GraphNode `json:"nodes"`
			Edges []struct{ A, B uint64 } `json:"edges"`
		}{Nodes: nodes}
		for _, e := range edges {
			out.Edges = append(out.Edges, struct{ A, B uint64 }{e.A, e.B})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var saveCmd = &cobra.Command{
	Use:   "save [path]",
	Short: "Persist the current state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		return db.Save(path)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Replace the current state from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := db.Load(args[0]); err != nil {
			return err
		}
		return db.Save(dbPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "spiderdb.spdr", "snapshot file path")

	addCmd.Flags().String("content", "", "node content (required)")
	addCmd.Flags().String("vector", "", "comma-separated embedding (required)")
	addCmd.Flags().Int("significance", 50, "significance in [0,100]")
	addCmd.Flags().Float64("auto-link", 0, "auto-link threshold in [0,1]; omit to disable")
	addCmd.MarkFlagRequired("content")
	addCmd.MarkFlagRequired("vector")

	searchCmd.Flags().String("vector", "", "comma-separated query embedding (required)")
	searchCmd.Flags().Int("k", 5, "number of results")
	searchCmd.Flags().Int("ef", 0, "ef_search candidate pool size; 0 uses the instance default")
	searchCmd.MarkFlagRequired("vector")

	vacuumCmd.Flags().Float64("threshold", 1.0, "life-score cutoff")

	clusterBuildCmd.Flags().Int("k", 2, "number of clusters")

	edgeCmd.AddCommand(edgeAddCmd)
	clusterCmd.AddCommand(clusterBuildCmd)
	graphCmd.AddCommand(graphDumpCmd)

	rootCmd.AddCommand(addCmd, getCmd, searchCmd, edgeCmd, vacuumCmd, clusterCmd, statsCmd, graphCmd, saveCmd, loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
