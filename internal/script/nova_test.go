package script

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	replies []string
	errs    []error
	inputs  []*bedrockruntime.ConverseInput
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	i := len(f.inputs)
	f.inputs = append(f.inputs, in)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: f.replies[i]}},
		}},
	}, nil
}

func TestNovaGenerate(t *testing.T) {
	client := &fakeConverse{replies: []string{"", `{"title":"Tides","description":"d","content":"Ana: The moon pulls.\nBen: It does."}`}}
	client.errs = []error{errors.New("throttled")}
	orig := initialBackoff
	initialBackoff = 0
	defer func() { initialBackoff = orig }()

	s, err := NewNovaGenerator("nova-lite", client).Generate(context.Background(), GenerateOptions{
		Idea:  "tides",
		Theme: "casual",
		Names: []string{"Ana", "Ben"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tides", s.Title)
	assert.Equal(t, []string{"Ana", "Ben"}, s.Names)
	require.Len(t, client.inputs, 2)
	assert.Equal(t, "us.amazon.nova-2-lite-v1:0", *client.inputs[0].ModelId)
}

func TestNovaGenerateRejectsOptions(t *testing.T) {
	client := &fakeConverse{}
	_, err := NewNovaGenerator("nova-lite", client).Generate(context.Background(), GenerateOptions{Theme: "opera", Names: []string{"Ana"}})
	assert.ErrorContains(t, err, "theme")
	assert.Empty(t, client.inputs)
}

func TestIsNovaModel(t *testing.T) {
	assert.True(t, IsNovaModel("nova-lite"))
	assert.False(t, IsNovaModel("haiku"))
}
