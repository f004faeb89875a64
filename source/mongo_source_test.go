package source

import (
	"context"
	"testing"

	. "github.com/bytedance/mockey"
	"github.com/hatlonely/configster/option"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func newMockedMongoSource() (*MongoSource, error) {
	client, err := mongo.NewClient(options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		return nil, err
	}
	Mock(mongo.Connect).Return(client, nil).Build()
	Mock((*mongo.Client).Ping).To(func(c *mongo.Client, ctx context.Context, rp *readpref.ReadPref) error {
		return nil
	}).Build()
	Mock((*mongo.Client).Disconnect).Return(nil).Build()

	return NewMongoSourceWithOptions(&MongoSourceOptions{
		URI:      "mongodb://localhost:27017",
		Database: "configster",
		Name:     "app",
	})
}

func TestMongoSource(t *testing.T) {
	PatchConvey("MongoSource", t, func() {
		ctx := context.Background()

		Convey("读取文档", func() {
			src, err := newMockedMongoSource()
			So(err, ShouldBeNil)
			defer src.Close()
			So(src.Name(), ShouldEqual, "mongo/config_files/app")

			Mock((*mongo.Collection).FindOne).Return(
				mongo.NewSingleResultFromDocument(bson.M{"_id": "app", "content": "a = 1, x\nb\n"}, nil, nil),
			).Build()

			records, err := option.NewParser(',').ParseSource(ctx, src)
			So(err, ShouldBeNil)
			So(records.Options(), ShouldResemble, []string{"a", "b"})
		})

		Convey("文档不存在", func() {
			src, err := newMockedMongoSource()
			So(err, ShouldBeNil)

			Mock((*mongo.Collection).FindOne).Return(
				mongo.NewSingleResultFromDocument(bson.M{}, mongo.ErrNoDocuments, nil),
			).Build()

			_, err = option.NewParser(',').ParseSource(ctx, src)
			So(option.IsIOError(err), ShouldBeTrue)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("字段类型不对", func() {
			src, err := newMockedMongoSource()
			So(err, ShouldBeNil)

			Mock((*mongo.Collection).FindOne).Return(
				mongo.NewSingleResultFromDocument(bson.M{"_id": "app", "content": 42}, nil, nil),
			).Build()

			_, err = option.NewParser(',').ParseSource(ctx, src)
			So(option.IsIOError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "not a string")
		})

		Convey("连接失败", func() {
			Mock(mongo.Connect).Return(nil, errors.New("no reachable servers")).Build()
			_, err := NewMongoSourceWithOptions(&MongoSourceOptions{Database: "configster", Name: "app"})
			So(err, ShouldNotBeNil)
		})

		Convey("缺少必填项", func() {
			_, err := NewMongoSourceWithOptions(&MongoSourceOptions{Database: "configster"})
			So(err, ShouldNotBeNil)
		})
	})
}
