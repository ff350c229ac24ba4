// status.go - the `status` subcommand: queries a running gradsyncd's observability surface
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gradsync/gradsync/envconfig"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print queue depths and topology from a running gradsyncd",
		Args:  cobra.ExactArgs(0),
		RunE:  StatusHandler,
	}
}

// topologyResponse mirrors server.topologyHandler's JSON body.
type topologyResponse struct {
	Rank        int  `json:"rank"`
	LocalRank   int  `json:"local_rank"`
	Size        int  `json:"size"`
	LocalSize   int  `json:"local_size"`
	Root        bool `json:"root"`
	Distributed bool `json:"distributed"`
}

// queueStat mirrors one entry of server.queuesHandler's JSON body
// (engine.QueueStats, with Stage rendered by name).
type queueStat struct {
	Stage         string `json:"Stage"`
	Pending       int    `json:"Pending"`
	BytesAdded    int64  `json:"BytesAdded"`
	BytesFinished int64  `json:"BytesFinished"`
}

// StatusHandler fetches /debug/topology and /debug/queues from the
// observability surface at GRADSYNC_HTTP_ADDR and renders them as tables.
func StatusHandler(cmd *cobra.Command, _ []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	base := "http://" + envconfig.HTTPAddr()

	var topology topologyResponse
	if err := fetchJSON(client, base+"/debug/topology", &topology); err != nil {
		return fmt.Errorf("gradsyncd status: %w", err)
	}
	printTopology(cmd.OutOrStdout(), topology)

	var queues []queueStat
	if err := fetchJSON(client, base+"/debug/queues", &queues); err != nil {
		return fmt.Errorf("gradsyncd status: %w", err)
	}
	printQueues(cmd.OutOrStdout(), queues)

	return nil
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}

	return json.Unmarshal(body, out)
}

func printTopology(w io.Writer, t topologyResponse) {
	role := "follower"
	if t.Root {
		role = "root"
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"RANK", "LOCAL RANK", "SIZE", "LOCAL SIZE", "ROLE", "DISTRIBUTED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.Append([]string{
		strconv.Itoa(t.Rank),
		strconv.Itoa(t.LocalRank),
		strconv.Itoa(t.Size),
		strconv.Itoa(t.LocalSize),
		role,
		strconv.FormatBool(t.Distributed),
	})
	table.Render()
}

func printQueues(w io.Writer, queues []queueStat) {
	var data [][]string
	for _, q := range queues {
		data = append(data, []string{
			q.Stage,
			strconv.Itoa(q.Pending),
			strconv.FormatInt(q.BytesAdded, 10),
			strconv.FormatInt(q.BytesFinished, 10),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"STAGE", "PENDING", "BYTES ADDED", "BYTES FINISHED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
