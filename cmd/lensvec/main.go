/*
 * Copyright 2025 CMC Lens Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// lensvec manages the Pinecone indexes the lens pipeline stores CLIP
// embeddings in.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanshuclassicmarble/cmc-lens/pinecone"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "ensure":
		err = ensureCmd(ctx, os.Args[2:])
	case "list":
		err = listCmd(ctx, os.Args[2:])
	case "describe":
		err = describeCmd(ctx, os.Args[2:])
	case "stats":
		err = statsCmd(ctx, os.Args[2:])
	case "delete":
		err = deleteCmd(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: lensvec <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  ensure    Create the serverless index unless it already exists, then list all")
	fmt.Fprintln(os.Stderr, "  list      List all indexes with their dimensions")
	fmt.Fprintln(os.Stderr, "  describe  Show one index in detail")
	fmt.Fprintln(os.Stderr, "  stats     Show vector counts for an index")
	fmt.Fprintln(os.Stderr, "  delete    Delete an index (requires --yes)")
	fmt.Fprintln(os.Stderr, "\nThe API key is read from PINECONE_API_KEY.")
}

func newAdmin(ctx context.Context) (*pinecone.Admin, error) {
	apiKey := os.Getenv("PINECONE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is not set")
	}

	return pinecone.NewAdmin(ctx, &pinecone.AdminConfig{ApiKey: apiKey})
}

func ensureCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("ensure", flag.ExitOnError)
	name := flags.String("index", pinecone.DefaultIndexName, "index name")
	dimension := flags.Int("dimension", pinecone.DefaultDimension, "vector dimension (matches the CLIP model)")
	metric := flags.String("metric", "cosine", "distance metric: cosine|dotproduct|euclidean")
	cloud := flags.String("cloud", "aws", "serverless cloud: aws|gcp|azure")
	region := flags.String("region", pinecone.DefaultRegion, "serverless region")
	flags.Parse(args)

	if *dimension <= 0 || *dimension > math.MaxInt32 {
		return fmt.Errorf("ensure: invalid dimension %d", *dimension)
	}

	m, err := pinecone.ParseMetric(*metric)
	if err != nil {
		return err
	}

	c, err := pinecone.ParseCloud(*cloud)
	if err != nil {
		return err
	}

	admin, err := newAdmin(ctx)
	if err != nil {
		return err
	}

	idx, created, err := admin.EnsureIndex(ctx, &pinecone.EnsureIndexRequest{
		Name:      *name,
		Dimension: int32(*dimension),
		Metric:    m,
		Cloud:     c,
		Region:    *region,
	})
	if err != nil {
		return err
	}

	if created {
		fmt.Printf("Created new index %q with %d dimensions\n", idx.Name, idx.Dimension)
	} else {
		fmt.Printf("Index %q already exists\n", idx.Name)
	}

	return printIndexes(ctx, admin)
}

func listCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("list", flag.ExitOnError)
	flags.Parse(args)

	admin, err := newAdmin(ctx)
	if err != nil {
		return err
	}

	return printIndexes(ctx, admin)
}

func printIndexes(ctx context.Context, admin *pinecone.Admin) error {
	idxs, err := admin.ListIndexes(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\nAvailable indexes:")
	for _, idx := range idxs {
		fmt.Printf("- %s: %d dimensions\n", idx.Name, idx.Dimension)
	}

	return nil
}

func describeCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("describe", flag.ExitOnError)
	name := flags.String("index", pinecone.DefaultIndexName, "index name")
	flags.Parse(args)

	admin, err := newAdmin(ctx)
	if err != nil {
		return err
	}

	idx, err := admin.DescribeIndex(ctx, *name)
	if err != nil {
		return err
	}

	fmt.Printf("Name:      %s\n", idx.Name)
	fmt.Printf("Dimension: %d\n", idx.Dimension)
	fmt.Printf("Metric:    %s\n", idx.Metric)
	fmt.Printf("Host:      %s\n", idx.Host)
	if idx.Spec != nil && idx.Spec.Serverless != nil {
		fmt.Printf("Cloud:     %s/%s\n", idx.Spec.Serverless.Cloud, idx.Spec.Serverless.Region)
	}
	if idx.Status != nil {
		fmt.Printf("State:     %s (ready=%t)\n", idx.Status.State, idx.Status.Ready)
	}

	return nil
}

func statsCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("stats", flag.ExitOnError)
	name := flags.String("index", pinecone.DefaultIndexName, "index name")
	namespace := flags.String("namespace", "", "namespace, default \"\"")
	flags.Parse(args)

	admin, err := newAdmin(ctx)
	if err != nil {
		return err
	}

	stats, err := admin.Stats(ctx, *name, *namespace)
	if err != nil {
		return err
	}

	fmt.Printf("Index %q: %d vectors, dimension %d, fullness %.2f\n",
		*name, stats.TotalVectorCount, stats.Dimension, stats.IndexFullness)
	for ns, summary := range stats.Namespaces {
		label := ns
		if label == "" {
			label = "(default)"
		}
		fmt.Printf("- namespace %s: %d vectors\n", label, summary.VectorCount)
	}

	return nil
}

func deleteCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("delete", flag.ExitOnError)
	name := flags.String("index", "", "index name (required)")
	yes := flags.Bool("yes", false, "confirm deletion")
	flags.Parse(args)

	if *name == "" {
		return fmt.Errorf("delete: --index is required")
	}

	if !*yes {
		return fmt.Errorf("delete: refusing to delete index %q without --yes", *name)
	}

	admin, err := newAdmin(ctx)
	if err != nil {
		return err
	}

	if err := admin.DeleteIndex(ctx, *name); err != nil {
		return err
	}

	fmt.Printf("Deleted index %q\n", *name)

	return nil
}
