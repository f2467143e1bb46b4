package util_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"

	"github.com/dosctl/dosctl/util"
)

var _ = Describe("Files", func() {

	var (
		tmpDir string
	)

	type TestConfig struct {
		SomeMap   map[string]string
		SomeArray []string
		SomeField int
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dosctl_util_test_tmp_*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.RemoveAll(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Config", func() {
		Context("in JSON format", func() {
			It("should be written and read successfully", func() {

				m := make(map[string]string)
				m["key1"] = "value1"
				m["key2"] = "value2"

				arr := []string{"value1", "value2"}

				written := &TestConfig{
					SomeMap:   m,
					SomeArray: arr,
					SomeField: 99,
				}

				err := util.WriteJson(tmpDir+"/testconfig.json", written)
				Expect(err).NotTo(HaveOccurred())

				read := &TestConfig{}
				err = util.ReadJson(tmpDir+"/testconfig.json", read)
				Expect(err).NotTo(HaveOccurred())
				Expect(read.SomeMap["key1"]).To(BeEquivalentTo(written.SomeMap["key1"]))
				Expect(read.SomeMap["key2"]).To(BeEquivalentTo(written.SomeMap["key2"]))
				Expect(read.SomeArray).To(ContainElements(arr))
				Expect(read.SomeField).To(BeEquivalentTo(written.SomeField))

			})
		})

		Context("under a missing parent directory", func() {
			It("should create it", func() {
				path := filepath.Join(tmpDir, "a", "b", "testconfig.json")

				err := util.WriteJson(path, &TestConfig{SomeField: 1})
				Expect(err).NotTo(HaveOccurred())
				Expect(path).To(BeAnExistingFile())
			})
		})
	})

	Describe("Writing bytes", func() {
		Context("to a file", func() {
			It("should leave no temporary files behind", func() {

				err := util.WriteBytes(tmpDir+"/listing.txt", []byte("games"))
				Expect(err).NotTo(HaveOccurred())

				content, err := os.ReadFile(tmpDir + "/listing.txt")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(content)).To(BeEquivalentTo("games"))

				entries, err := os.ReadDir(tmpDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
			})
		})

		Context("over an existing file", func() {
			It("should replace the content", func() {

				err := util.WriteBytes(tmpDir+"/listing.txt", []byte("before"))
				Expect(err).NotTo(HaveOccurred())

				err = util.WriteBytes(tmpDir+"/listing.txt", []byte("after"))
				Expect(err).NotTo(HaveOccurred())

				content, err := os.ReadFile(tmpDir + "/listing.txt")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(content)).To(BeEquivalentTo("after"))
			})
		})
	})

	Describe("Handle config file without full path", func() {
		Context("config file handling", func() {
			It("should be successful", func() {
				written := &TestConfig{
					SomeField: 123,
				}
				cfgFile := "test_cfg.json"
				defer os.Remove(cfgFile)

				err := util.WriteJson(cfgFile, written)
				Expect(err).NotTo(HaveOccurred())

				read := &TestConfig{}
				err = util.ReadJson(cfgFile, read)
				Expect(err).NotTo(HaveOccurred())
				Expect(read.SomeField).To(BeEquivalentTo(written.SomeField))
			})
		})
	})
})

var _ = Describe("Logging", func() {
	Context("initialized for the console", func() {
		It("should apply the level", func() {
			err := util.InitLog("debug", "console")
			Expect(err).NotTo(HaveOccurred())
			Expect(log.GetLevel()).To(BeEquivalentTo(log.DebugLevel))

			err = util.InitLog("info", "console")
			Expect(err).NotTo(HaveOccurred())
			Expect(log.GetLevel()).To(BeEquivalentTo(log.InfoLevel))
		})
	})

	Context("initialized with a bogus level", func() {
		It("should fail", func() {
			err := util.InitLog("shouting", "console")
			Expect(err).To(HaveOccurred())
		})
	})
})
