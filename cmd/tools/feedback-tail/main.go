// Command feedback-tail prints the posture feedback stream.
//
// Usage:
//
//	go run ./cmd/tools/feedback-tail [-addr localhost:50061] [-regions neck-feedback,hip-feedback]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
	"github.com/banshee-data/posture.report/internal/pose/visualiser"
)

func main() {
	addr := flag.String("addr", "localhost:50061", "gRPC feedback stream address")
	regions := flag.String("regions", "", "Comma separated region ids to show (default all)")
	changes := flag.Bool("changes", false, "Only print results whose verdict changed")
	flag.Parse()

	req := visualiser.Request{}
	for _, r := range strings.Split(*regions, ",") {
		if r = strings.TrimSpace(r); r != "" {
			req.Regions = append(req.Regions, l3alignment.Region(r))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	defer conn.Close()

	last := make(map[string]string)
	err = visualiser.Subscribe(ctx, conn, req, func(u *visualiser.Update) error {
		if len(u.Results) == 0 {
			fmt.Printf("%s tick=%d state=%s\n", u.At.Format("15:04:05.000"), u.Tick, u.State)
			return nil
		}
		for _, v := range u.Results {
			if *changes && last[v.Region] == v.Message {
				continue
			}
			last[v.Region] = v.Message
			fmt.Printf("%s tick=%d %-16s %6.1f/%-5.1f %s %s\n",
				u.At.Format("15:04:05.000"), u.Tick, v.Region, v.Metric, v.Threshold, v.Color, v.Message)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && status.Code(err) != codes.Canceled {
		fmt.Fprintf(os.Stderr, "feedback stream ended: %v\n", err)
		os.Exit(1)
	}
}
