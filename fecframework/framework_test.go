package fecframework_test

import (
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/fecframework"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CreateFrameworks", func() {
	controller := fec.ConstantController{SourceSymbols: 2, RepairSymbols: 1}

	DescribeTable("builds a matched sender/receiver pair for every known scheme",
		func(scheme fecframework.Scheme) {
			sender, receiver, err := fecframework.CreateFrameworks(scheme, controller, 8, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(sender).NotTo(BeNil())
			Expect(receiver).NotTo(BeNil())
		},
		Entry("xor-block", fecframework.SchemeXORBlock),
		Entry("rs-block", fecframework.SchemeRSBlock),
		Entry("xor-window", fecframework.SchemeXORWindow),
		Entry("rs-window", fecframework.SchemeRSWindow),
	)

	It("rejects an unknown scheme name", func() {
		sender, receiver, err := fecframework.CreateFrameworks(fecframework.Scheme("nonsense"), controller, 8, nil, nil)
		Expect(err).To(HaveOccurred())
		Expect(sender).To(BeNil())
		Expect(receiver).To(BeNil())
	})
})
