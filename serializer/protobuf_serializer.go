package serializer

import (
	"github.com/hatlonely/configster/option"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtobufSerializer 把记录编码为 google.protobuf.ListValue
// 每条记录是 {option, value: {primary, attributes}} 结构
type ProtobufSerializer struct{}

func NewProtobufSerializer() *ProtobufSerializer {
	return &ProtobufSerializer{}
}

func (s *ProtobufSerializer) Serialize(from option.Records) ([]byte, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(from))}
	for _, r := range from {
		attrs := make([]*structpb.Value, 0, len(r.Value.Attributes))
		for _, a := range r.Value.Attributes {
			attrs = append(attrs, structpb.NewStringValue(a))
		}
		list.Values = append(list.Values, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"option": structpb.NewStringValue(r.Option),
				"value": structpb.NewStructValue(&structpb.Struct{
					Fields: map[string]*structpb.Value{
						"primary":    structpb.NewStringValue(r.Value.Primary),
						"attributes": structpb.NewListValue(&structpb.ListValue{Values: attrs}),
					},
				}),
			},
		}))
	}

	data, err := proto.Marshal(list)
	return data, errors.Wrap(err, "proto.Marshal failed")
}

func (s *ProtobufSerializer) Deserialize(data []byte) (option.Records, error) {
	var list structpb.ListValue
	if err := proto.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrap(err, "proto.Unmarshal failed")
	}

	records := make(option.Records, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, errors.Errorf("record %d is not a struct", i)
		}
		value := fields["value"].GetStructValue().GetFields()

		attrs := []string{}
		for _, a := range value["attributes"].GetListValue().GetValues() {
			attrs = append(attrs, a.GetStringValue())
		}
		records = append(records, option.OptionProperties{
			Option: fields["option"].GetStringValue(),
			Value: option.Value{
				Primary:    value["primary"].GetStringValue(),
				Attributes: attrs,
			},
		})
	}
	return records, nil
}
