package suites

import (
	"context"

	"github.com/ethereum-optimism/infra/op-devicetest/protocol"
	"github.com/ethereum-optimism/infra/op-devicetest/runner"
)

func registerProtocol(e *runner.Env) {
	e.Describe("Protocol", func() {
		e.It("round trips the completion line", func(_ context.Context, t *runner.T) error {
			want := protocol.NewRunSummary(2, "--- A.b\n+++ A.c\ntoBe: Expected false to be true.\n")
			line, err := want.MarkerLine()
			if !t.NoError(err) {
				return nil
			}
			t.True(protocol.IsCompletion(line), "marker line must carry the completion marker")

			got, err := protocol.ParseCompletion(line)
			if !t.NoError(err) {
				return nil
			}
			t.Equal(want, *got)
			return nil
		})

		e.It("rewrites the link scheme for fetching", func(_ context.Context, t *runner.T) error {
			link := protocol.LinkURL(protocol.DefaultLinkScheme, 19000)
			t.Equal("exp://localhost:19000", link)
			t.Equal("http://localhost:19000", protocol.FetchURL(link, protocol.DefaultLinkScheme))
			return nil
		})
	})
}
