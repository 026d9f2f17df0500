package params

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, Name("PublicSubnet-1"), PublicSubnet(1))
	assert.Equal(t, Name("PrivateSubnet-0"), PrivateSubnet(0))
	assert.Equal(t, []Name{
		"VpcId",
		"PublicSubnet-0", "PublicSubnet-1",
		"PrivateSubnet-0", "PrivateSubnet-1",
	}, NetworkExports(2))
}

func TestNotPublishedError(t *testing.T) {
	var err error = &NotPublishedError{Name: VpcID}
	assert.True(t, errors.Is(err, ErrNotPublished))
	assert.Contains(t, err.Error(), "VpcId")

	var npe *NotPublishedError
	require.True(t, errors.As(err, &npe))
	assert.Equal(t, VpcID, npe.Name)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, VpcID)
	require.ErrorIs(t, err, ErrNotPublished)

	require.NoError(t, store.Put(ctx, VpcID, "vpc-0abc"))
	require.NoError(t, store.Put(ctx, VpcID, "vpc-0def"))

	value, err := store.Get(ctx, VpcID)
	require.NoError(t, err)
	assert.Equal(t, "vpc-0def", value)
	assert.Equal(t, []Name{VpcID}, store.Names())
	assert.Equal(t, []Name{VpcID}, store.Reads())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Put(ctx, PrivateSubnet(i), "subnet")
			_, _ = store.Get(ctx, PrivateSubnet(i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Names(), 16)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Get(ctx, VpcID)
	require.ErrorIs(t, err, context.Canceled)
}

type mockSSM struct {
	ssmiface.SSMAPI
	values map[string]string
	getErr error
	puts   []*ssm.PutParameterInput
}

func (m *mockSSM) GetParameterWithContext(_ aws.Context, in *ssm.GetParameterInput, _ ...request.Option) (*ssm.GetParameterOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	value, ok := m.values[aws.StringValue(in.Name)]
	if !ok {
		return nil, awserr.New(ssm.ErrCodeParameterNotFound, "not found", nil)
	}
	return &ssm.GetParameterOutput{Parameter: &ssm.Parameter{Name: in.Name, Value: aws.String(value)}}, nil
}

func (m *mockSSM) PutParameterWithContext(_ aws.Context, in *ssm.PutParameterInput, _ ...request.Option) (*ssm.PutParameterOutput, error) {
	m.puts = append(m.puts, in)
	m.values[aws.StringValue(in.Name)] = aws.StringValue(in.Value)
	return &ssm.PutParameterOutput{}, nil
}

func TestSSMStore(t *testing.T) {
	ctx := context.Background()
	client := &mockSSM{values: map[string]string{}}
	store := NewSSMStore(client)

	_, err := store.Get(ctx, PrivateSubnet(0))
	var npe *NotPublishedError
	require.ErrorAs(t, err, &npe)
	assert.Equal(t, PrivateSubnet(0), npe.Name)

	require.NoError(t, store.Put(ctx, PrivateSubnet(0), "subnet-0123"))
	require.Len(t, client.puts, 1)
	assert.Equal(t, ssm.ParameterTypeString, aws.StringValue(client.puts[0].Type))
	assert.True(t, aws.BoolValue(client.puts[0].Overwrite))

	value, err := store.Get(ctx, PrivateSubnet(0))
	require.NoError(t, err)
	assert.Equal(t, "subnet-0123", value)
}

func TestSSMStore_ProviderErrorSurfaces(t *testing.T) {
	client := &mockSSM{getErr: awserr.New("AccessDeniedException", "denied", nil)}

	_, err := NewSSMStore(client).Get(context.Background(), VpcID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotPublished))
	assert.Contains(t, err.Error(), "AccessDeniedException")
}
