package store

import (
	"context"
	"errors"
	"testing"

	. "github.com/bytedance/mockey"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRedisStorePing(t *testing.T) {
	PatchConvey("RedisStore 连接检查", t, func() {
		Convey("Ping 失败时返回错误", func() {
			statusCmd := redis.NewStatusCmd(context.Background())
			statusCmd.SetErr(errors.New("connection refused"))
			Mock((*redis.Client).Ping).Return(statusCmd).Build()

			store, err := NewRedisStoreWithOptions(&RedisStoreOptions{Endpoint: "localhost:6379"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "connection refused")
			So(store, ShouldBeNil)
		})

		Convey("集群模式", func() {
			statusCmd := redis.NewStatusCmd(context.Background())
			statusCmd.SetVal("PONG")
			Mock((*redis.ClusterClient).Ping).Return(statusCmd).Build()

			store, err := NewRedisStoreWithOptions(&RedisStoreOptions{
				Endpoints: []string{"localhost:7000", "localhost:7001"},
			})
			So(err, ShouldBeNil)
			So(store, ShouldNotBeNil)
			So(store.Close(), ShouldBeNil)
		})

		Convey("Get 出错时透传", func() {
			statusCmd := redis.NewStatusCmd(context.Background())
			statusCmd.SetVal("PONG")
			Mock((*redis.Client).Ping).Return(statusCmd).Build()

			stringCmd := redis.NewStringCmd(context.Background())
			stringCmd.SetErr(errors.New("timeout"))
			Mock((*redis.Client).Get).Return(stringCmd).Build()

			store, err := NewRedisStoreWithOptions(&RedisStoreOptions{Endpoint: "localhost:6379"})
			So(err, ShouldBeNil)
			_, err = store.Get(context.Background(), "k")
			So(err, ShouldNotBeNil)
			So(err, ShouldNotEqual, ErrKeyNotFound)
		})
	})
}
